package trip

import (
	"errors"
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestLocations(t *testing.T) {
	tests := []struct {
		name string
		from string
		dest string
		want []string
	}{
		{"distinct origin", "Delhi", "Jaipur", []string{"Delhi", "Jaipur"}},
		{"same city", "Jaipur", "Jaipur", []string{"Jaipur"}},
		{"same city different case", "jaipur", "Jaipur", []string{"Jaipur"}},
		{"no origin", "", "Goa", []string{"Goa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Request{From: tt.from, Destination: tt.dest}.Locations()
			if len(got) != len(tt.want) {
				t.Fatalf("Locations() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Locations() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	r := Request{From: "Delhi", Destination: "Jaipur"}
	routes := r.Routes()
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].From != "Delhi" || routes[0].To != "Jaipur" {
		t.Fatalf("unexpected route %+v", routes[0])
	}

	if got := (Request{Destination: "Goa"}).Routes(); got != nil {
		t.Fatalf("single-location trip should have no routes, got %v", got)
	}
}

func TestNights(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"four full nights", date(2026, 3, 10), date(2026, 3, 14), 4},
		{"partial day rounds up", date(2026, 3, 10), date(2026, 3, 14).Add(6 * time.Hour), 5},
		{"same day", date(2026, 3, 10), date(2026, 3, 10), 0},
		{"missing dates", time.Time{}, time.Time{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Request{StartDate: tt.start, EndDate: tt.end}.Nights()
			if got != tt.want {
				t.Fatalf("Nights() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Request{Destination: "Jaipur", Travelers: 2}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	if err := (Request{Travelers: 2}).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := (Request{Destination: "Jaipur"}).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero travelers, got %v", err)
	}

	bad := Request{Destination: "Jaipur", Travelers: 1, StartDate: date(2026, 3, 14), EndDate: date(2026, 3, 10)}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for reversed dates, got %v", err)
	}
}

func TestReplaceFirst(t *testing.T) {
	it := &Itinerary{Content: "Day 1: Outdoor sightseeing at the fort. Day 2: Outdoor sightseeing at the lake."}

	if !it.ReplaceFirst("Outdoor sightseeing", "Indoor museum visits") {
		t.Fatal("expected substitution to happen")
	}
	want := "Day 1: Indoor museum visits at the fort. Day 2: Outdoor sightseeing at the lake."
	if it.Content != want {
		t.Fatalf("Content = %q, want %q", it.Content, want)
	}

	if it.ReplaceFirst("not present", "x") {
		t.Fatal("substitution of absent text should report false")
	}
	if it.Content != want {
		t.Fatalf("failed substitution must not mutate content, got %q", it.Content)
	}

	if it.ReplaceFirst("", "x") {
		t.Fatal("empty original should report false")
	}
}
