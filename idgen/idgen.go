// Package idgen provides pluggable ID generation.
//
// Constructors across escale accept a Generator, making the ID strategy a
// startup-time decision: UUIDv7 for session ids, short nano ids where a
// UUID is too verbose, and prefixed digit runs for user-facing booking
// references.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// fromAlphabet draws length characters from alphabet using crypto/rand.
// The modulo map is slightly biased toward low characters; acceptable for
// identifiers, do not use for secrets.
func fromAlphabet(alphabet string, length int) Generator {
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand: " + err.Error())
		}
		for i, c := range buf {
			buf[i] = alphabet[int(c)%len(alphabet)]
		}
		return string(buf)
	}
}

// NanoID generates short base-36 IDs of the given length. Use where a
// UUIDv7 is too verbose (adaptation ids, claim tokens).
func NanoID(length int) Generator {
	return fromAlphabet("0123456789abcdefghijklmnopqrstuvwxyz", length)
}

// Digits generates decimal digit runs of the given length, leading zeros
// allowed.
func Digits(length int) Generator {
	return fromAlphabet("0123456789", length)
}

// UUIDv7 generates RFC 9562 version 7 UUIDs, time-sortable and globally
// unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed prefix to every ID from gen, for type-scoped
// identifiers ("TRV", "sess_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// BookingRef generates user-facing booking references: "TRV" followed by
// six digits.
var BookingRef Generator = Prefixed("TRV", Digits(6))

// Default is the repository default: UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
