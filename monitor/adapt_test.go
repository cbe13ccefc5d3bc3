package monitor

import (
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/escale/trip"
)

func highChange(kind ChangeKind) Change {
	return Change{Kind: kind, Severity: SeverityHigh}
}

func newTestEngine(t *testing.T, content string) (*Engine, *trip.Itinerary) {
	t.Helper()
	it := &trip.Itinerary{Content: content}
	return NewEngine(it, nil), it
}

func TestPropose_FixedMapping(t *testing.T) {
	tests := []struct {
		name        string
		change      Change
		wantKind    AdaptationKind
		wantDetail  string
		wantNothing bool
	}{
		{
			name:       "weather alert proposes replacement",
			change:     highChange(ChangeWeatherAlert),
			wantKind:   AdaptActivityReplacement,
			wantDetail: "Indoor museum visits",
		},
		{
			name:       "traffic delay proposes adjustment",
			change:     highChange(ChangeTrafficDelay),
			wantKind:   AdaptScheduleAdjustment,
			wantDetail: "Delay departure by 1 hour",
		},
		{
			name:       "flight delay proposes shift",
			change:     highChange(ChangeFlightDelay),
			wantKind:   AdaptScheduleShift,
			wantDetail: "Reschedule first day activities",
		},
		{
			name:        "unmapped kind proposes nothing",
			change:      highChange(ChangeAvailability),
			wantNothing: true,
		},
		{
			name:        "non-high severity proposes nothing",
			change:      Change{Kind: ChangeWeatherAlert, Severity: SeverityMedium},
			wantNothing: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, "Day 1: Outdoor sightseeing.")
			got := e.Propose(tt.change)
			if tt.wantNothing {
				if len(got) != 0 {
					t.Fatalf("Propose() = %+v, want nothing", got)
				}
				if len(e.Adaptations()) != 0 {
					t.Fatal("nothing should be retained")
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("Propose() returned %d adaptations, want 1", len(got))
			}
			a := got[0]
			if a.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", a.Kind, tt.wantKind)
			}
			if a.Status != StatusProposed {
				t.Fatalf("Status = %q, want proposed", a.Status)
			}
			if a.ID == "" {
				t.Fatal("ID must be assigned")
			}
			detail := a.Replacement
			if detail == "" {
				detail = a.Adjustment
			}
			if detail != tt.wantDetail {
				t.Fatalf("detail = %q, want %q", detail, tt.wantDetail)
			}
		})
	}
}

func TestPropose_WeatherReplacementTexts(t *testing.T) {
	e, _ := newTestEngine(t, "")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]
	if a.Original != "Outdoor sightseeing" {
		t.Fatalf("Original = %q", a.Original)
	}
	if a.Replacement != "Indoor museum visits" {
		t.Fatalf("Replacement = %q", a.Replacement)
	}
	if a.Reason != "Weather conditions" {
		t.Fatalf("Reason = %q", a.Reason)
	}
}

func TestOnChange_FiltersBySeverity(t *testing.T) {
	e, _ := newTestEngine(t, "")
	e.OnChange(Change{Kind: ChangeTrafficDelay, Severity: SeverityMedium})
	e.OnChange(Change{Kind: ChangeTrafficDelay, Severity: SeverityLow})
	if got := len(e.Adaptations()); got != 0 {
		t.Fatalf("retained %d adaptations from non-high changes, want 0", got)
	}
	e.OnChange(highChange(ChangeTrafficDelay))
	if got := len(e.Adaptations()); got != 1 {
		t.Fatalf("retained %d adaptations, want 1", got)
	}
}

func TestApply_ReplacesFirstOccurrenceOnly(t *testing.T) {
	const content = "Day 1: Outdoor sightseeing at the fort. Day 2: Outdoor sightseeing at the lake."
	e, _ := newTestEngine(t, content)
	a := e.Propose(highChange(ChangeWeatherAlert))[0]

	if err := e.Apply(a.ID); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := e.ItineraryContent()
	want := "Day 1: Indoor museum visits at the fort. Day 2: Outdoor sightseeing at the lake."
	if got != want {
		t.Fatalf("content = %q\nwant      %q", got, want)
	}
	if e.Adaptations()[0].Status != StatusApplied {
		t.Fatalf("Status = %q, want applied", e.Adaptations()[0].Status)
	}
}

func TestApply_NoMatchLeavesProposed(t *testing.T) {
	e, _ := newTestEngine(t, "Day 1: Beach morning. Day 2: Spice plantation tour.")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]

	err := e.Apply(a.ID)
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Apply error = %v, want ErrNoMatch", err)
	}
	if e.ItineraryContent() != "Day 1: Beach morning. Day 2: Spice plantation tour." {
		t.Fatal("failed apply must not mutate the itinerary")
	}
	if e.Adaptations()[0].Status != StatusProposed {
		t.Fatalf("Status = %q, want still proposed", e.Adaptations()[0].Status)
	}
}

func TestApply_AdjustmentMutatesNothing(t *testing.T) {
	const content = "Day 1: Outdoor sightseeing."
	e, _ := newTestEngine(t, content)
	a := e.Propose(highChange(ChangeTrafficDelay))[0]

	if err := e.Apply(a.ID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if e.ItineraryContent() != content {
		t.Fatal("schedule adjustment must not touch itinerary text")
	}
	if e.Adaptations()[0].Status != StatusApplied {
		t.Fatalf("Status = %q, want applied", e.Adaptations()[0].Status)
	}
}

func TestApplyAndDismiss_AreTerminal(t *testing.T) {
	e, _ := newTestEngine(t, "Outdoor sightseeing all day.")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]
	b := e.Propose(highChange(ChangeTrafficDelay))[0]

	if err := e.Apply(a.ID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := e.Apply(a.ID); !errors.Is(err, ErrAdaptationSettled) {
		t.Fatalf("second Apply = %v, want ErrAdaptationSettled", err)
	}
	if err := e.Dismiss(a.ID); !errors.Is(err, ErrAdaptationSettled) {
		t.Fatalf("Dismiss after Apply = %v, want ErrAdaptationSettled", err)
	}

	if err := e.Dismiss(b.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if err := e.Apply(b.ID); !errors.Is(err, ErrAdaptationSettled) {
		t.Fatalf("Apply after Dismiss = %v, want ErrAdaptationSettled", err)
	}

	if err := e.Apply("missing-id"); !errors.Is(err, ErrAdaptationNotFound) {
		t.Fatalf("Apply unknown id = %v, want ErrAdaptationNotFound", err)
	}
}

func TestApplyAll_PartialSuccess(t *testing.T) {
	// No outdoor activity in the itinerary, so the weather replacement
	// fails while the traffic adjustment still applies.
	e, _ := newTestEngine(t, "Day 1: Museum crawl.")
	weather := e.Propose(highChange(ChangeWeatherAlert))[0]
	traffic := e.Propose(highChange(ChangeTrafficDelay))[0]

	out := e.ApplyAll()
	if len(out) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(out))
	}
	if out[0].ID != weather.ID || out[1].ID != traffic.ID {
		t.Fatal("outcomes must preserve proposal order")
	}
	if out[0].Applied || !strings.Contains(out[0].Error, "not found") {
		t.Fatalf("weather outcome = %+v, want failure with no-match error", out[0])
	}
	if !out[1].Applied || out[1].Error != "" {
		t.Fatalf("traffic outcome = %+v, want success", out[1])
	}

	all := e.Adaptations()
	if all[0].Status != StatusProposed {
		t.Fatalf("failed adaptation status = %q, want proposed", all[0].Status)
	}
	if all[1].Status != StatusApplied {
		t.Fatalf("applied adaptation status = %q, want applied", all[1].Status)
	}
}

func TestApplyAll_SkipsSettled(t *testing.T) {
	e, _ := newTestEngine(t, "Outdoor sightseeing.")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]
	e.Propose(highChange(ChangeTrafficDelay))

	if err := e.Dismiss(a.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	out := e.ApplyAll()
	if len(out) != 1 {
		t.Fatalf("got %d outcomes, want 1 (dismissed one skipped)", len(out))
	}
}

func TestPending(t *testing.T) {
	e, _ := newTestEngine(t, "Outdoor sightseeing.")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]
	e.Propose(highChange(ChangeTrafficDelay))

	if err := e.Apply(a.ID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	pending := e.Pending()
	if len(pending) != 1 {
		t.Fatalf("Pending() = %d items, want 1", len(pending))
	}
	if pending[0].Kind != AdaptScheduleAdjustment {
		t.Fatalf("pending kind = %q, want schedule_adjustment", pending[0].Kind)
	}
}

func TestReplaceItinerary_KeepsProposals(t *testing.T) {
	e, _ := newTestEngine(t, "Day 1: Museum crawl.")
	a := e.Propose(highChange(ChangeWeatherAlert))[0]

	// The regenerated plan happens to contain the outdoor activity, so the
	// earlier proposal now applies cleanly.
	e.ReplaceItinerary(trip.Itinerary{Content: "Day 1: Outdoor sightseeing at dawn."})

	if err := e.Apply(a.ID); err != nil {
		t.Fatalf("Apply after regenerate: %v", err)
	}
	if got := e.ItineraryContent(); got != "Day 1: Indoor museum visits at dawn." {
		t.Fatalf("content = %q", got)
	}
}
