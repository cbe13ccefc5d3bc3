package monitor

import (
	"context"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// SourceID identifies one external data feed polled on its own schedule.
type SourceID string

const (
	SourceWeather      SourceID = "weather"
	SourceTraffic      SourceID = "traffic"
	SourceEvents       SourceID = "events"
	SourceFlightStatus SourceID = "flight_status"
	SourceAvailability SourceID = "booking_availability"
)

// AllSources lists every known source in a stable order.
var AllSources = []SourceID{
	SourceWeather,
	SourceTraffic,
	SourceEvents,
	SourceFlightStatus,
	SourceAvailability,
}

// DefaultIntervals holds the per-source refresh intervals.
var DefaultIntervals = map[SourceID]time.Duration{
	SourceWeather:      30 * time.Minute,
	SourceTraffic:      5 * time.Minute,
	SourceEvents:       60 * time.Minute,
	SourceFlightStatus: 15 * time.Minute,
	SourceAvailability: 10 * time.Minute,
}

// TripContext carries the fetch parameters derived from a trip request.
// Providers receive it on every fetch; it is a value copy, safe to read
// without coordination.
type TripContext struct {
	Locations    []string     `json:"locations"`
	Routes       []trip.Route `json:"routes"`
	FlightNumber string       `json:"flight_number,omitempty"`
	CheckIn      time.Time    `json:"check_in"`
	CheckOut     time.Time    `json:"check_out"`
	Guests       int          `json:"guests"`
}

// NewTripContext derives fetch parameters from a trip request.
func NewTripContext(req trip.Request) TripContext {
	return TripContext{
		Locations: req.Locations(),
		Routes:    req.Routes(),
		CheckIn:   req.StartDate,
		CheckOut:  req.EndDate,
		Guests:    req.Travelers,
	}
}

// Provider adapts one upstream feed to its canonical payload shape. The
// adapter owns normalization: raw provider fields map to the canonical
// struct once, at this boundary, with any optional-field fallback rules
// stated there and nowhere else.
//
// A provider missing a required credential returns an error (wrap
// sources.ErrMissingCredential); it must never fabricate a reading.
type Provider interface {
	Source() SourceID
	Fetch(ctx context.Context, tc TripContext) (Payload, error)
}

// Payload is a canonical snapshot payload. The shape is fixed per source.
type Payload interface {
	Source() SourceID
}

// --- Canonical payload shapes ---

// WeatherReading is the normalized current weather for one location.
type WeatherReading struct {
	Location  string  `json:"location"`
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition"`
	WindMS    float64 `json:"wind_ms"`
	Humidity  float64 `json:"humidity,omitempty"`
}

// WeatherReport holds one reading per monitored location, in trip-location
// order.
type WeatherReport struct {
	Readings []WeatherReading `json:"readings"`
}

func (WeatherReport) Source() SourceID { return SourceWeather }

// RouteTraffic is the normalized congestion state of one route.
type RouteTraffic struct {
	Route        trip.Route `json:"route"`
	DelayMinutes int        `json:"delay_minutes"`
	Incidents    []string   `json:"incidents,omitempty"`
}

// TrafficReport holds one entry per monitored route, in trip-route order.
type TrafficReport struct {
	Routes []RouteTraffic `json:"routes"`
}

func (TrafficReport) Source() SourceID { return SourceTraffic }

// Event is one local event, matched across snapshots by ID.
type Event struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Date         string `json:"date,omitempty"`
	Venue        string `json:"venue,omitempty"`
	Availability string `json:"availability"`
}

// Event availability values.
const (
	EventAvailable = "available"
	EventSoldOut   = "sold_out"
)

// LocationEvents is the event list for one location.
type LocationEvents struct {
	Location string  `json:"location"`
	Events   []Event `json:"events"`
}

// EventsReport holds one event list per monitored location, in
// trip-location order.
type EventsReport struct {
	Locations []LocationEvents `json:"locations"`
}

func (EventsReport) Source() SourceID { return SourceEvents }

// FlightStatus is the single status record for the tracked flight.
type FlightStatus struct {
	FlightNumber string  `json:"flight_number,omitempty"`
	Status       string  `json:"status,omitempty"`
	Delayed      bool    `json:"delayed"`
	DelayMinutes int     `json:"delay_minutes,omitempty"`
	PriceChange  float64 `json:"price_change,omitempty"`
}

func (FlightStatus) Source() SourceID { return SourceFlightStatus }

// Availability is the single hotel-inventory record for the trip dates.
type Availability struct {
	HotelsAvailable bool `json:"hotels_available"`
	LastMinuteDeals bool `json:"last_minute_deals"`
	RoomsLeft       int  `json:"rooms_left,omitempty"`
}

func (Availability) Source() SourceID { return SourceAvailability }

// --- Snapshot ---

// Snapshot is the latest normalized payload for one source plus its fetch
// time.
type Snapshot struct {
	Source    SourceID  `json:"source"`
	Data      Payload   `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// --- Changes ---

// Severity ranks how significant a detected change is. It is assigned by
// the type of change, never by caller context.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ChangeKind names the semantic category of a detected change.
type ChangeKind string

const (
	ChangeWeatherAlert    ChangeKind = "weather_alert"
	ChangeTemperature     ChangeKind = "temperature_change"
	ChangeTrafficDelay    ChangeKind = "traffic_delay"
	ChangeTrafficIncident ChangeKind = "traffic_incident"
	ChangeNewEvents       ChangeKind = "new_events"
	ChangeEventSoldOut    ChangeKind = "event_sold_out"
	ChangeFlightDelay     ChangeKind = "flight_delay"
	ChangePrice           ChangeKind = "price_change"
	ChangeAvailability    ChangeKind = "availability_change"
	ChangeLastMinuteDeal  ChangeKind = "last_minute_deal"
)

// Change is a detected, typed, severity-tagged difference between two
// snapshots of the same source. Immutable once emitted.
type Change struct {
	Source          SourceID   `json:"source"`
	Kind            ChangeKind `json:"kind"`
	Severity        Severity   `json:"severity"`
	Message         string     `json:"message"`
	Recommendations []string   `json:"recommendations,omitempty"`
	Location        string     `json:"location,omitempty"`
	Payload         any        `json:"payload,omitempty"`
	At              time.Time  `json:"at"`
}

// ChangeRecord is a Change with its position in the session's change
// history, used as a polling cursor.
type ChangeRecord struct {
	Seq int64 `json:"seq"`
	Change
}
