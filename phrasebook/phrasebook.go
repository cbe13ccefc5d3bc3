// Package phrasebook provides offline renderings of the traveler phrases
// the service exposes. It stands in when no translation backend is
// configured; unknown phrases and languages pass through unchanged.
package phrasebook

import (
	"sort"
	"strings"
)

// phrases maps a normalized English phrase to its per-language renderings,
// keyed by ISO 639-1 code.
var phrases = map[string]map[string]string{
	"hello": {
		"es": "Hola",
		"fr": "Bonjour",
		"de": "Hallo",
		"hi": "नमस्ते",
		"ja": "こんにちは",
	},
	"thank you": {
		"es": "Gracias",
		"fr": "Merci",
		"de": "Danke",
		"hi": "धन्यवाद",
		"ja": "ありがとう",
	},
	"goodbye": {
		"es": "Adiós",
		"fr": "Au revoir",
		"de": "Auf Wiedersehen",
		"hi": "अलविदा",
		"ja": "さようなら",
	},
	"how much": {
		"es": "¿Cuánto cuesta?",
		"fr": "Combien ça coûte ?",
		"de": "Wie viel kostet das?",
		"hi": "कितना है?",
		"ja": "いくらですか",
	},
	"where is": {
		"es": "¿Dónde está?",
		"fr": "Où est ?",
		"de": "Wo ist?",
		"hi": "कहाँ है?",
		"ja": "どこですか",
	},
}

// languageCodes accepts both ISO codes and English language names.
var languageCodes = map[string]string{
	"es": "es", "spanish": "es",
	"fr": "fr", "french": "fr",
	"de": "de", "german": "de",
	"hi": "hi", "hindi": "hi",
	"ja": "ja", "japanese": "ja",
}

// Translate renders text in the target language. It reports false and
// returns the input unchanged when the phrase or the language is unknown.
func Translate(text, lang string) (string, bool) {
	code, ok := languageCodes[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return text, false
	}
	entry, ok := phrases[normalize(text)]
	if !ok {
		return text, false
	}
	out, ok := entry[code]
	if !ok {
		return text, false
	}
	return out, true
}

// normalize lowercases and strips the trailing punctuation a user would
// type, so "Hello!" and "how much?" hit their entries.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, "?!.,")
	return strings.TrimSpace(s)
}

// Languages lists the supported target language codes, sorted.
func Languages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, code := range languageCodes {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// Phrases lists the English phrases the book can render, sorted.
func Phrases() []string {
	out := make([]string, 0, len(phrases))
	for p := range phrases {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
