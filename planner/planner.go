// Package planner generates itineraries. Three clients share one interface:
// an HTTP client for an external planner service, a Gemini client, and a
// static offline planner for sim mode and tests. The HTTP client normalizes
// HTML responses into markdown before they ever reach an itinerary, because
// the adaptation engine mutates itinerary text with plain substring
// replacement.
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// ErrMissingCredential is returned by constructors that need an API key.
var ErrMissingCredential = errors.New("planner: missing credential")

// ErrEmptyPlan is returned when a planner produced no usable itinerary text.
var ErrEmptyPlan = errors.New("planner: empty plan")

// PlanRequest carries everything a planner needs. SelectedFlight and
// SelectedHotel are set on regeneration only.
type PlanRequest struct {
	FromCity     string  `json:"from_city,omitempty"`
	Destination  string  `json:"destination"`
	Theme        string  `json:"theme,omitempty"`
	Language     string  `json:"language,omitempty"`
	Budget       float64 `json:"budget,omitempty"`
	Travelers    int     `json:"travelers,omitempty"`
	DurationDays int     `json:"duration,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`

	SelectedFlight *trip.FlightOption `json:"selected_flight,omitempty"`
	SelectedHotel  *trip.HotelOption  `json:"selected_hotel,omitempty"`
}

// PlanResult is a generated itinerary plus whatever session state the
// planner wants echoed back on the next call.
type PlanResult struct {
	Itinerary trip.Itinerary
	SessionID string
	State     map[string]any
}

// Client is the planner seam. Implementations: HTTPClient, Gemini, Static.
type Client interface {
	Generate(ctx context.Context, req PlanRequest) (*PlanResult, error)
}

// RequestFrom maps a trip request onto the planner wire shape.
func RequestFrom(req trip.Request) PlanRequest {
	pr := PlanRequest{
		FromCity:     req.From,
		Destination:  req.Destination,
		Theme:        req.Theme,
		Language:     req.Language,
		Budget:       req.Budget,
		Travelers:    req.Travelers,
		DurationDays: req.DurationDays,
	}
	if !req.StartDate.IsZero() {
		pr.StartDate = req.StartDate.Format("2006-01-02")
	}
	if !req.EndDate.IsZero() {
		pr.EndDate = req.EndDate.Format("2006-01-02")
	}
	return pr
}

// days resolves the itinerary length: the explicit duration first, then the
// date span, then a three-day default.
func (r PlanRequest) days() int {
	if r.DurationDays > 0 {
		return r.DurationDays
	}
	start, serr := time.Parse("2006-01-02", r.StartDate)
	end, eerr := time.Parse("2006-01-02", r.EndDate)
	if serr == nil && eerr == nil && end.After(start) {
		return int(end.Sub(start) / (24 * time.Hour))
	}
	return 3
}

// Regen adapts a Client into the booking flow's regeneration seam: the
// confirmed flight and hotel ride along so the regenerated plan is built
// around them.
type Regen struct {
	Client Client
}

func (r Regen) Regenerate(ctx context.Context, req trip.Request, flight trip.FlightOption, hotel trip.HotelOption) (trip.Itinerary, error) {
	pr := RequestFrom(req)
	pr.SelectedFlight = &flight
	pr.SelectedHotel = &hotel
	res, err := r.Client.Generate(ctx, pr)
	if err != nil {
		return trip.Itinerary{}, err
	}
	return res.Itinerary, nil
}
