// Package booking implements the multi-step selection flow: trip submission,
// flight and hotel selection, and confirmation. All selection state lives in
// the session store; the machine's state is derived from which keys exist,
// which is what lets selections survive process and page boundaries.
package booking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// Step names one stage of the selection flow.
type Step string

const (
	StepTrip    Step = "trip"
	StepFlight  Step = "flight"
	StepHotel   Step = "hotel"
	StepConfirm Step = "confirm"
)

// State is the derived position in the flow.
type State string

const (
	StateNoData              State = "no_data"
	StateFlightPending       State = "flight_pending"
	StateHotelPending        State = "hotel_pending"
	StateConfirmationPending State = "confirmation_pending"
	StateFinalized           State = "finalized"
)

// Session store keys. The flow owns these names; nothing else writes them.
const (
	KeyTravelData     = "travel_data"
	KeySelectedFlight = "selected_flight"
	KeySelectedHotel  = "selected_hotel"
	KeyFinalItinerary = "final_itinerary"
)

// ErrKeyNotFound is returned by Store.Get for an absent key.
var ErrKeyNotFound = errors.New("booking: key not found")

// ErrRegeneration marks a failed itinerary regeneration during Confirm;
// nothing is written and the flow stays at confirmation.
var ErrRegeneration = errors.New("booking: itinerary regeneration failed")

// ErrInvalidContact is returned by Confirm for incomplete contact details.
var ErrInvalidContact = errors.New("booking: invalid contact")

// ErrUnknownStep is returned by EditSelections for a step name outside the
// flow.
var ErrUnknownStep = errors.New("booking: unknown step")

// RedirectError reports a precondition of the flow that is not met yet and
// the step that satisfies it. Flight-missing takes priority over
// hotel-missing. The HTTP layer maps it to a conflict with a redirect
// target rather than a failure.
type RedirectError struct {
	Step    Step
	Missing string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("booking: %s not set, redirect to %s step", e.Missing, e.Step)
}

// TravelData is the stored trip submission: the request plus the preview
// itinerary generated for it.
type TravelData struct {
	Request trip.Request   `json:"request"`
	Preview trip.Itinerary `json:"preview"`
}

// Contact identifies the traveler confirming the booking.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate reports every missing field at once.
func (c Contact) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidContact, strings.Join(missing, ", "))
	}
	return nil
}

// Confirmation is the stored final_itinerary value and the Confirm result.
type Confirmation struct {
	Reference string         `json:"reference"`
	Itinerary trip.Itinerary `json:"itinerary"`
	Rollup    Rollup         `json:"rollup"`
	Contact   Contact        `json:"contact"`
	BookedAt  time.Time      `json:"booked_at"`
}

// Selections is the full persisted picture of one session's flow.
type Selections struct {
	State  State              `json:"state"`
	Travel *TravelData        `json:"travel_data,omitempty"`
	Flight *trip.FlightOption `json:"selected_flight,omitempty"`
	Hotel  *trip.HotelOption  `json:"selected_hotel,omitempty"`
	Final  *Confirmation      `json:"final_itinerary,omitempty"`
}

// Rollup is the cost summary for one flight+hotel selection pair.
type Rollup struct {
	FlightTotal float64 `json:"flight_total"`
	HotelTotal  float64 `json:"hotel_total"`
	GrandTotal  float64 `json:"grand_total"`
	Budget      float64 `json:"budget"`
	Remaining   float64 `json:"remaining"`
	Nights      int     `json:"nights"`
	Travelers   int     `json:"travelers"`
	UnderBudget bool    `json:"under_budget"`
}

// NewRollup computes the trip cost: flight price times travelers plus hotel
// per-night price times nights (a started night counts whole). Remaining is
// budget minus the grand total; non-negative means under budget.
func NewRollup(req trip.Request, flight trip.FlightOption, hotel trip.HotelOption) Rollup {
	travelers := req.Travelers
	if travelers < 1 {
		travelers = 1
	}
	nights := req.Nights()

	flightTotal := flight.Price * float64(travelers)
	hotelTotal := hotel.PricePerNight * float64(nights)
	grand := flightTotal + hotelTotal
	remaining := req.Budget - grand

	return Rollup{
		FlightTotal: round2(flightTotal),
		HotelTotal:  round2(hotelTotal),
		GrandTotal:  round2(grand),
		Budget:      req.Budget,
		Remaining:   round2(remaining),
		Nights:      nights,
		Travelers:   travelers,
		UnderBudget: remaining >= 0,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
