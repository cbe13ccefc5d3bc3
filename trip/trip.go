// Package trip defines the domain types shared across escale: the trip
// request a user submits, the flight and hotel offers search returns, and
// the generated itinerary that monitoring adapts.
//
// Every downstream fetch parameter (locations to watch, routes to check)
// derives from the Request, so the derivation rules live here and nowhere
// else.
package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRequest = errors.New("trip: invalid request")

// Request holds user-entered trip parameters. Immutable once submitted.
type Request struct {
	From         string    `json:"from_city"`
	Destination  string    `json:"destination"`
	Theme        string    `json:"theme"`
	Language     string    `json:"language"`
	Budget       float64   `json:"budget"`
	Travelers    int       `json:"travelers"`
	DurationDays int       `json:"duration"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// Route is an ordered origin→destination pair derived from the location list.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate checks the fields every consumer relies on.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Destination) == "" {
		missing = append(missing, "destination")
	}
	if r.Travelers <= 0 {
		missing = append(missing, "travelers")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if !r.EndDate.IsZero() && !r.StartDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidRequest)
	}
	return nil
}

// Locations returns the places to monitor: origin then destination,
// deduplicated in order. The origin is prepended only when it is set and
// distinct from the destination.
func (r Request) Locations() []string {
	from := strings.TrimSpace(r.From)
	dest := strings.TrimSpace(r.Destination)
	if from == "" || strings.EqualFold(from, dest) {
		return []string{dest}
	}
	return []string{from, dest}
}

// Routes returns consecutive location pairs. A single-location trip has no
// routes.
func (r Request) Routes() []Route {
	locs := r.Locations()
	if len(locs) < 2 {
		return nil
	}
	routes := make([]Route, 0, len(locs)-1)
	for i := 0; i < len(locs)-1; i++ {
		routes = append(routes, Route{From: locs[i], To: locs[i+1]})
	}
	return routes
}

// Nights returns the number of hotel nights between StartDate and EndDate,
// rounding any partial day up. Zero when either date is missing.
func (r Request) Nights() int {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return 0
	}
	d := r.EndDate.Sub(r.StartDate)
	if d <= 0 {
		return 0
	}
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// --- Offers ---

// FlightOption is one ranked transport offer, normalized from whichever
// search backend produced it.
type FlightOption struct {
	Airline       string  `json:"airline"`
	AirlineCode   string  `json:"airline_code"`
	FlightNumber  string  `json:"flight_number"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Duration      string  `json:"duration"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Stops         int     `json:"stops"`
	Source        string  `json:"source,omitempty"`
}

// HotelOption is one ranked accommodation offer.
type HotelOption struct {
	Name          string   `json:"name"`
	HotelID       string   `json:"hotel_id"`
	Location      string   `json:"location"`
	PricePerNight float64  `json:"price_per_night"`
	Rating        float64  `json:"rating"`
	Currency      string   `json:"currency"`
	Tier          string   `json:"tier,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	BookingLink   string   `json:"booking_link,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// --- Itinerary ---

// Itinerary is the generated plan. Content is the displayed text and the
// only part adaptations mutate; everything else is read-only once generated.
type Itinerary struct {
	Content          string    `json:"content"`
	GeneratedAt      time.Time `json:"generated_at"`
	PlannerSessionID string    `json:"planner_session_id,omitempty"`
}

// ReplaceFirst substitutes the first occurrence of original with replacement
// in the itinerary content. It reports whether a substitution happened,
// leaving the content untouched when original does not occur.
//
// First-occurrence substitution is deliberately narrow: callers go through
// this one operation so a structured itinerary representation can replace
// the mechanism without touching them.
func (it *Itinerary) ReplaceFirst(original, replacement string) bool {
	if original == "" {
		return false
	}
	idx := strings.Index(it.Content, original)
	if idx < 0 {
		return false
	}
	it.Content = it.Content[:idx] + replacement + it.Content[idx+len(original):]
	return true
}
