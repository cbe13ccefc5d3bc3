package idgen

import (
	"strings"
	"testing"
)

func TestNanoID(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		for _, n := range []int{4, 10, 21} {
			if id := NanoID(n)(); len(id) != n {
				t.Errorf("NanoID(%d) produced %q (length %d)", n, id, len(id))
			}
		}
	})
	t.Run("alphabet", func(t *testing.T) {
		id := NanoID(200)()
		if strings.ContainsFunc(id, func(c rune) bool {
			return !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z')
		}) {
			t.Errorf("NanoID emitted characters outside [0-9a-z]: %q", id)
		}
	})
	t.Run("no repeats", func(t *testing.T) {
		gen := NanoID(12)
		seen := make(map[string]bool, 1000)
		for range 1000 {
			id := gen()
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
}

func TestDigits(t *testing.T) {
	id := Digits(6)()
	if len(id) != 6 {
		t.Fatalf("Digits(6) produced %q", id)
	}
	if strings.ContainsFunc(id, func(c rune) bool { return c < '0' || c > '9' }) {
		t.Fatalf("Digits emitted a non-digit: %q", id)
	}
}

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()

	id := gen()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("not a canonical uuid: %q", id)
	}

	// v7 is time-ordered, so a batch generated in sequence sorts as-is.
	prev := gen()
	for range 50 {
		next := gen()
		if next <= prev {
			t.Fatalf("v7 ids out of order: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("sess_", NanoID(8))()
	if !strings.HasPrefix(id, "sess_") || len(id) != len("sess_")+8 {
		t.Fatalf("Prefixed produced %q", id)
	}
}

func TestBookingRef(t *testing.T) {
	ref := BookingRef()
	if !strings.HasPrefix(ref, "TRV") {
		t.Fatalf("reference %q lacks the TRV prefix", ref)
	}
	digits := strings.TrimPrefix(ref, "TRV")
	if len(digits) != 6 {
		t.Fatalf("reference %q: want 6 digits after the prefix", ref)
	}
	if strings.ContainsFunc(digits, func(c rune) bool { return c < '0' || c > '9' }) {
		t.Fatalf("reference %q: non-digit after the prefix", ref)
	}
}

func TestNewDefaultsToUUIDv7(t *testing.T) {
	if id := New(); len(id) != 36 {
		t.Fatalf("New produced %q, want a canonical uuid", id)
	}
}
