package phrasebook

import (
	"reflect"
	"testing"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		text, lang string
		want       string
		ok         bool
	}{
		{"hello", "es", "Hola", true},
		{"hello", "hi", "नमस्ते", true},
		{"thank you", "ja", "ありがとう", true},
		{"goodbye", "de", "Auf Wiedersehen", true},
		{"how much", "fr", "Combien ça coûte ?", true},
		{"where is", "es", "¿Dónde está?", true},
		{"Hello!", "es", "Hola", true},
		{"  THANK YOU  ", "de", "Danke", true},
		{"how much?", "hi", "कितना है?", true},
		{"hello", "Spanish", "Hola", true},
		{"hello", "JAPANESE", "こんにちは", true},
		{"good evening", "es", "good evening", false},
		{"hello", "klingon", "hello", false},
		{"", "es", "", false},
	}
	for _, tc := range cases {
		got, ok := Translate(tc.text, tc.lang)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Translate(%q, %q) = %q, %v; want %q, %v", tc.text, tc.lang, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLanguages(t *testing.T) {
	want := []string{"de", "es", "fr", "hi", "ja"}
	if got := Languages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Languages() = %v, want %v", got, want)
	}
}

func TestPhrases(t *testing.T) {
	want := []string{"goodbye", "hello", "how much", "thank you", "where is"}
	if got := Phrases(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Phrases() = %v, want %v", got, want)
	}
}

func TestEveryPhraseCoversEveryLanguage(t *testing.T) {
	for _, p := range Phrases() {
		for _, lang := range Languages() {
			if _, ok := Translate(p, lang); !ok {
				t.Errorf("no %s rendering for %q", lang, p)
			}
		}
	}
}
