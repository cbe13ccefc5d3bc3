package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/trip"
)

// Regenerator rebuilds the itinerary around the confirmed selections.
// Implemented by the planner.
type Regenerator interface {
	Regenerate(ctx context.Context, req trip.Request, flight trip.FlightOption, hotel trip.HotelOption) (trip.Itinerary, error)
}

// FlowOptions configures a Flow.
type FlowOptions struct {
	// NewRef generates booking references. Defaults to idgen.BookingRef.
	NewRef idgen.Generator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o *FlowOptions) defaults() {
	if o.NewRef == nil {
		o.NewRef = idgen.BookingRef
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Flow drives the selection state machine over the session store. State is
// never held in memory; every call derives it from the persisted keys.
type Flow struct {
	store  *Store
	regen  Regenerator
	newRef idgen.Generator
	logger *slog.Logger
}

// NewFlow builds the selection flow.
func NewFlow(store *Store, regen Regenerator, opts FlowOptions) *Flow {
	opts.defaults()
	return &Flow{
		store:  store,
		regen:  regen,
		newRef: opts.NewRef,
		logger: opts.Logger,
	}
}

// State derives the session's position in the flow from the stored keys.
func (f *Flow) State(ctx context.Context, sess string) (State, error) {
	keys, err := f.store.Keys(ctx, sess)
	if err != nil {
		return "", err
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	switch {
	case !present[KeyTravelData]:
		return StateNoData, nil
	case !present[KeySelectedFlight]:
		return StateFlightPending, nil
	case !present[KeySelectedHotel]:
		return StateHotelPending, nil
	case !present[KeyFinalItinerary]:
		return StateConfirmationPending, nil
	default:
		return StateFinalized, nil
	}
}

// SubmitTrip stores the trip request and its preview itinerary, entering
// the flight-selection step. Resubmission overwrites the previous travel
// data and leaves later selections in place until they are overwritten.
func (f *Flow) SubmitTrip(ctx context.Context, sess string, req trip.Request, preview trip.Itinerary) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := f.store.Put(ctx, sess, KeyTravelData, TravelData{Request: req, Preview: preview}); err != nil {
		return err
	}
	f.logger.Info("booking: trip submitted",
		"session_id", sess, "destination", req.Destination, "travelers", req.Travelers)
	return nil
}

// SelectFlight stores the chosen flight, overwriting any prior selection.
func (f *Flow) SelectFlight(ctx context.Context, sess string, flight trip.FlightOption) error {
	if err := f.require(ctx, sess, KeyTravelData, StepTrip); err != nil {
		return err
	}
	if err := f.store.Put(ctx, sess, KeySelectedFlight, flight); err != nil {
		return err
	}
	f.logger.Info("booking: flight selected",
		"session_id", sess, "airline", flight.Airline, "flight", flight.FlightNumber)
	return nil
}

// SelectHotel stores the chosen hotel, overwriting any prior selection.
// A missing flight redirects before a missing hotel ever could.
func (f *Flow) SelectHotel(ctx context.Context, sess string, hotel trip.HotelOption) error {
	if err := f.require(ctx, sess, KeyTravelData, StepTrip); err != nil {
		return err
	}
	if err := f.require(ctx, sess, KeySelectedFlight, StepFlight); err != nil {
		return err
	}
	if err := f.store.Put(ctx, sess, KeySelectedHotel, hotel); err != nil {
		return err
	}
	f.logger.Info("booking: hotel selected", "session_id", sess, "hotel", hotel.Name)
	return nil
}

// Quote computes the cost rollup for the current selections without
// writing anything. Preconditions redirect exactly like Confirm.
func (f *Flow) Quote(ctx context.Context, sess string) (*Rollup, error) {
	td, flight, hotel, err := f.confirmInputs(ctx, sess)
	if err != nil {
		return nil, err
	}
	r := NewRollup(td.Request, *flight, *hotel)
	return &r, nil
}

// Confirm finalizes the booking: validates the contact, regenerates the
// itinerary around the selections, computes the rollup, and stores the
// final record. A regeneration failure writes nothing, so the session
// stays at confirmation and Confirm can be retried.
func (f *Flow) Confirm(ctx context.Context, sess string, contact Contact) (*Confirmation, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	td, flight, hotel, err := f.confirmInputs(ctx, sess)
	if err != nil {
		return nil, err
	}

	itin, err := f.regen.Regenerate(ctx, td.Request, *flight, *hotel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegeneration, err)
	}

	conf := Confirmation{
		Reference: f.newRef(),
		Itinerary: itin,
		Rollup:    NewRollup(td.Request, *flight, *hotel),
		Contact:   contact,
		BookedAt:  time.Now().UTC(),
	}
	if err := f.store.Put(ctx, sess, KeyFinalItinerary, conf); err != nil {
		return nil, err
	}

	f.logger.Info("booking: confirmed",
		"session_id", sess, "reference", conf.Reference, "grand_total", conf.Rollup.GrandTotal)
	return &conf, nil
}

// EditSelections re-enters an earlier step. Nothing is deleted: data from
// later steps stays until the caller overwrites it through the normal
// selection calls. The returned state is the derived one, unchanged.
func (f *Flow) EditSelections(ctx context.Context, sess string, step Step) (State, error) {
	switch step {
	case StepTrip, StepFlight, StepHotel, StepConfirm:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	return f.State(ctx, sess)
}

// Selections returns everything persisted for the session plus its derived
// state.
func (f *Flow) Selections(ctx context.Context, sess string) (*Selections, error) {
	state, err := f.State(ctx, sess)
	if err != nil {
		return nil, err
	}
	out := &Selections{State: state}

	var td TravelData
	switch err := f.store.Get(ctx, sess, KeyTravelData, &td); {
	case err == nil:
		out.Travel = &td
	case !errors.Is(err, ErrKeyNotFound):
		return nil, err
	}

	var flight trip.FlightOption
	switch err := f.store.Get(ctx, sess, KeySelectedFlight, &flight); {
	case err == nil:
		out.Flight = &flight
	case !errors.Is(err, ErrKeyNotFound):
		return nil, err
	}

	var hotel trip.HotelOption
	switch err := f.store.Get(ctx, sess, KeySelectedHotel, &hotel); {
	case err == nil:
		out.Hotel = &hotel
	case !errors.Is(err, ErrKeyNotFound):
		return nil, err
	}

	var conf Confirmation
	switch err := f.store.Get(ctx, sess, KeyFinalItinerary, &conf); {
	case err == nil:
		out.Final = &conf
	case !errors.Is(err, ErrKeyNotFound):
		return nil, err
	}

	return out, nil
}

// Reset clears the session's stored flow data.
func (f *Flow) Reset(ctx context.Context, sess string) error {
	if err := f.store.Reset(ctx, sess); err != nil {
		return err
	}
	f.logger.Info("booking: session reset", "session_id", sess)
	return nil
}

// require turns an absent key into the redirect for its step.
func (f *Flow) require(ctx context.Context, sess, key string, step Step) error {
	ok, err := f.store.Has(ctx, sess, key)
	if err != nil {
		return err
	}
	if !ok {
		return &RedirectError{Step: step, Missing: key}
	}
	return nil
}

// confirmInputs loads the three confirmation preconditions, redirecting on
// the first missing one: trip, then flight, then hotel.
func (f *Flow) confirmInputs(ctx context.Context, sess string) (*TravelData, *trip.FlightOption, *trip.HotelOption, error) {
	var td TravelData
	if err := f.store.Get(ctx, sess, KeyTravelData, &td); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil, nil, &RedirectError{Step: StepTrip, Missing: KeyTravelData}
		}
		return nil, nil, nil, err
	}
	var flight trip.FlightOption
	if err := f.store.Get(ctx, sess, KeySelectedFlight, &flight); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil, nil, &RedirectError{Step: StepFlight, Missing: KeySelectedFlight}
		}
		return nil, nil, nil, err
	}
	var hotel trip.HotelOption
	if err := f.store.Get(ctx, sess, KeySelectedHotel, &hotel); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil, nil, &RedirectError{Step: StepHotel, Missing: KeySelectedHotel}
		}
		return nil, nil, nil, err
	}
	return &td, &flight, &hotel, nil
}
