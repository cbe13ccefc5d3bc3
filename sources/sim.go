package sources

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hazyhaar/escale/monitor"
)

// The Sim providers are deterministic feeds for demos and tests. Baselines
// are seeded from location names, and each provider counts its fetches:
// from the configured flip step onward it reports a scripted disturbance,
// so a running monitor produces real, reproducible changes. A flip step of
// zero means the feed never changes.

func seed(name string) uint32 {
	var h uint32
	for _, c := range name {
		h = h*31 + uint32(c)
	}
	return h
}

// SimWeather reports mild weather, then a heatwave from the flip step on.
type SimWeather struct {
	flipAt int64
	step   atomic.Int64
}

// NewSimWeather builds the scripted weather feed.
func NewSimWeather(flipAt int64) *SimWeather { return &SimWeather{flipAt: flipAt} }

// Source implements monitor.Provider.
func (s *SimWeather) Source() monitor.SourceID { return monitor.SourceWeather }

// Fetch implements monitor.Provider.
func (s *SimWeather) Fetch(_ context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	n := s.step.Add(1)
	readings := make([]monitor.WeatherReading, 0, len(tc.Locations))
	for _, loc := range tc.Locations {
		r := monitor.WeatherReading{
			Location:  loc,
			TempC:     22 + float64(seed(loc)%10),
			Condition: "clear",
			WindMS:    3,
			Humidity:  55,
		}
		if s.flipAt > 0 && n >= s.flipAt {
			r.TempC = 42
			r.Condition = "sunny"
		}
		readings = append(readings, r)
	}
	return monitor.WeatherReport{Readings: readings}, nil
}

// SimTraffic reports light congestion, then a jam with an incident from
// the flip step on.
type SimTraffic struct {
	flipAt int64
	step   atomic.Int64
}

// NewSimTraffic builds the scripted traffic feed.
func NewSimTraffic(flipAt int64) *SimTraffic { return &SimTraffic{flipAt: flipAt} }

// Source implements monitor.Provider.
func (s *SimTraffic) Source() monitor.SourceID { return monitor.SourceTraffic }

// Fetch implements monitor.Provider.
func (s *SimTraffic) Fetch(_ context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	n := s.step.Add(1)
	routes := make([]monitor.RouteTraffic, 0, len(tc.Routes))
	for _, r := range tc.Routes {
		rt := monitor.RouteTraffic{
			Route:        r,
			DelayMinutes: 5 + int(seed(r.From+r.To)%5),
		}
		if s.flipAt > 0 && n >= s.flipAt {
			rt.DelayMinutes += 25
			rt.Incidents = []string{"Accident reported on the main highway"}
		}
		routes = append(routes, rt)
	}
	return monitor.TrafficReport{Routes: routes}, nil
}

// SimEvents reports two events per location; from the flip step on the
// first sells out and a pop-up event appears.
type SimEvents struct {
	flipAt int64
	step   atomic.Int64
}

// NewSimEvents builds the scripted events feed.
func NewSimEvents(flipAt int64) *SimEvents { return &SimEvents{flipAt: flipAt} }

// Source implements monitor.Provider.
func (s *SimEvents) Source() monitor.SourceID { return monitor.SourceEvents }

// Fetch implements monitor.Provider.
func (s *SimEvents) Fetch(_ context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	n := s.step.Add(1)
	flipped := s.flipAt > 0 && n >= s.flipAt

	locations := make([]monitor.LocationEvents, 0, len(tc.Locations))
	for _, loc := range tc.Locations {
		first := monitor.EventAvailable
		if flipped {
			first = monitor.EventSoldOut
		}
		events := []monitor.Event{
			{
				ID:           fmt.Sprintf("sim-%s-1", loc),
				Name:         "Heritage walking tour",
				Venue:        "Old town",
				Availability: first,
			},
			{
				ID:           fmt.Sprintf("sim-%s-2", loc),
				Name:         "Local food festival",
				Venue:        "Market square",
				Availability: monitor.EventAvailable,
			},
		}
		if flipped {
			events = append(events, monitor.Event{
				ID:           fmt.Sprintf("sim-%s-3", loc),
				Name:         "Pop-up night bazaar",
				Venue:        "Riverside",
				Availability: monitor.EventAvailable,
			})
		}
		locations = append(locations, monitor.LocationEvents{Location: loc, Events: events})
	}
	return monitor.EventsReport{Locations: locations}, nil
}

// SimFlight reports an on-time flight, then a 45 minute delay from the
// flip step on.
type SimFlight struct {
	flipAt int64
	step   atomic.Int64
}

// NewSimFlight builds the scripted flight-status feed.
func NewSimFlight(flipAt int64) *SimFlight { return &SimFlight{flipAt: flipAt} }

// Source implements monitor.Provider.
func (s *SimFlight) Source() monitor.SourceID { return monitor.SourceFlightStatus }

// Fetch implements monitor.Provider.
func (s *SimFlight) Fetch(_ context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	n := s.step.Add(1)
	fn := tc.FlightNumber
	if fn == "" {
		fn = "SIM-101"
	}
	st := monitor.FlightStatus{FlightNumber: fn, Status: "on time"}
	if s.flipAt > 0 && n >= s.flipAt {
		st.Status = "delayed"
		st.Delayed = true
		st.DelayMinutes = 45
	}
	return st, nil
}

// SimAvailability reports open inventory, then sold-out hotels from the
// flip step on.
type SimAvailability struct {
	flipAt int64
	step   atomic.Int64
}

// NewSimAvailability builds the scripted availability feed.
func NewSimAvailability(flipAt int64) *SimAvailability {
	return &SimAvailability{flipAt: flipAt}
}

// Source implements monitor.Provider.
func (s *SimAvailability) Source() monitor.SourceID { return monitor.SourceAvailability }

// Fetch implements monitor.Provider.
func (s *SimAvailability) Fetch(_ context.Context, _ monitor.TripContext) (monitor.Payload, error) {
	n := s.step.Add(1)
	av := monitor.Availability{HotelsAvailable: true, RoomsLeft: 12}
	if s.flipAt > 0 && n >= s.flipAt {
		av.HotelsAvailable = false
		av.RoomsLeft = 0
	}
	return av, nil
}

// SimProviders returns one scripted provider per source, all flipping at
// the same step.
func SimProviders(flipAt int64) []monitor.Provider {
	return []monitor.Provider{
		NewSimWeather(flipAt),
		NewSimTraffic(flipAt),
		NewSimEvents(flipAt),
		NewSimFlight(flipAt),
		NewSimAvailability(flipAt),
	}
}
