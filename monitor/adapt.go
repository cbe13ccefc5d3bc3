package monitor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/trip"
)

// AdaptationKind names the itinerary mutation a change proposes.
type AdaptationKind string

const (
	AdaptActivityReplacement AdaptationKind = "activity_replacement"
	AdaptScheduleAdjustment  AdaptationKind = "schedule_adjustment"
	AdaptScheduleShift       AdaptationKind = "schedule_shift"
)

// AdaptationStatus is the lifecycle state of one adaptation. Applied and
// Dismissed are terminal.
type AdaptationStatus string

const (
	StatusProposed  AdaptationStatus = "proposed"
	StatusApplied   AdaptationStatus = "applied"
	StatusDismissed AdaptationStatus = "dismissed"
)

// Adaptation is a proposed itinerary mutation triggered by a high-severity
// change.
type Adaptation struct {
	ID          string           `json:"id"`
	Kind        AdaptationKind   `json:"kind"`
	Original    string           `json:"original,omitempty"`
	Replacement string           `json:"replacement,omitempty"`
	Adjustment  string           `json:"adjustment,omitempty"`
	Reason      string           `json:"reason"`
	Status      AdaptationStatus `json:"status"`
	ChangeKind  ChangeKind       `json:"change_kind"`
}

// ApplyOutcome reports one adaptation's result from ApplyAll.
type ApplyOutcome struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Engine proposes adaptations from high-severity changes and manages their
// lifecycle. It owns all mutation of the itinerary it was constructed with.
type Engine struct {
	mu       sync.Mutex
	itin     *trip.Itinerary
	order    []string
	byID     map[string]*Adaptation
	newID    idgen.Generator
	logger   *slog.Logger
	proposed int64
	applied  int64
}

// NewEngine creates an Engine mutating the given itinerary.
func NewEngine(itin *trip.Itinerary, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		itin:   itin,
		byID:   make(map[string]*Adaptation),
		newID:  idgen.NanoID(10),
		logger: logger,
	}
}

// OnChange is the bus listener: high-severity changes propose adaptations,
// everything else is ignored.
func (e *Engine) OnChange(c Change) {
	if c.Severity != SeverityHigh {
		return
	}
	e.Propose(c)
}

// Propose maps a high-severity change to candidate adaptations and retains
// them for lifecycle calls. The mapping is a fixed lookup; unmapped change
// kinds propose nothing. Non-high changes propose nothing.
func (e *Engine) Propose(c Change) []Adaptation {
	if c.Severity != SeverityHigh {
		return nil
	}

	var a *Adaptation
	switch c.Kind {
	case ChangeWeatherAlert:
		a = &Adaptation{
			Kind:        AdaptActivityReplacement,
			Original:    "Outdoor sightseeing",
			Replacement: "Indoor museum visits",
			Reason:      "Weather conditions",
		}
	case ChangeTrafficDelay:
		a = &Adaptation{
			Kind:       AdaptScheduleAdjustment,
			Adjustment: "Delay departure by 1 hour",
			Reason:     "Traffic delay",
		}
	case ChangeFlightDelay:
		a = &Adaptation{
			Kind:       AdaptScheduleShift,
			Adjustment: "Reschedule first day activities",
			Reason:     "Flight delay",
		}
	default:
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	a.ID = e.newID()
	a.Status = StatusProposed
	a.ChangeKind = c.Kind
	e.byID[a.ID] = a
	e.order = append(e.order, a.ID)
	e.proposed++
	e.logger.Info("monitor: adaptation proposed",
		"id", a.ID, "kind", a.Kind, "reason", a.Reason)
	return []Adaptation{*a}
}

// Apply transitions one adaptation to Applied. Activity replacements
// perform the first-occurrence substitution on the itinerary; a missing
// original leaves the adaptation proposed and returns ErrNoMatch.
// Adjustment and shift kinds mutate nothing (acknowledgement only).
func (e *Engine) Apply(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(id)
}

func (e *Engine) applyLocked(id string) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAdaptationNotFound, id)
	}
	if a.Status != StatusProposed {
		return fmt.Errorf("%w: %s is %s", ErrAdaptationSettled, id, a.Status)
	}

	if a.Kind == AdaptActivityReplacement {
		if !e.itin.ReplaceFirst(a.Original, a.Replacement) {
			return fmt.Errorf("%w: %q", ErrNoMatch, a.Original)
		}
	}

	a.Status = StatusApplied
	e.applied++
	e.logger.Info("monitor: adaptation applied", "id", id, "kind", a.Kind)
	return nil
}

// Dismiss discards one proposed adaptation. Terminal.
func (e *Engine) Dismiss(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAdaptationNotFound, id)
	}
	if a.Status != StatusProposed {
		return fmt.Errorf("%w: %s is %s", ErrAdaptationSettled, id, a.Status)
	}
	a.Status = StatusDismissed
	e.logger.Info("monitor: adaptation dismissed", "id", id)
	return nil
}

// ApplyAll applies every proposed adaptation in proposal order. Each
// application is independent: a failure is recorded in its outcome and the
// rest still run.
func (e *Engine) ApplyAll() []ApplyOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []ApplyOutcome
	for _, id := range e.order {
		if e.byID[id].Status != StatusProposed {
			continue
		}
		o := ApplyOutcome{ID: id}
		if err := e.applyLocked(id); err != nil {
			o.Error = err.Error()
		} else {
			o.Applied = true
		}
		out = append(out, o)
	}
	return out
}

// Adaptations returns copies of all adaptations in proposal order.
func (e *Engine) Adaptations() []Adaptation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Adaptation, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.byID[id])
	}
	return out
}

// Pending returns copies of the adaptations still in Proposed state.
func (e *Engine) Pending() []Adaptation {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Adaptation
	for _, id := range e.order {
		if a := e.byID[id]; a.Status == StatusProposed {
			out = append(out, *a)
		}
	}
	return out
}

// ItineraryContent returns the current itinerary text.
func (e *Engine) ItineraryContent() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.itin.Content
}

// ReplaceItinerary swaps in a regenerated itinerary. Existing proposed
// adaptations stay proposed; they will apply against the new content.
func (e *Engine) ReplaceItinerary(it trip.Itinerary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*e.itin = it
}
