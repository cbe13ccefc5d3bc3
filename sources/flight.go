package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hazyhaar/escale/monitor"
)

// FlightStatus fetches the status record for the session's selected flight.
type FlightStatus struct {
	cfg Config
}

// NewFlightStatus builds the live flight-status adapter.
func NewFlightStatus(cfg Config) *FlightStatus {
	cfg.defaults()
	return &FlightStatus{cfg: cfg}
}

// Source implements monitor.Provider.
func (f *FlightStatus) Source() monitor.SourceID { return monitor.SourceFlightStatus }

type flightResponse struct {
	Status       string  `json:"status"`
	Delayed      bool    `json:"delayed"`
	DelayMinutes int     `json:"delay_minutes"`
	PriceChange  float64 `json:"price_change"`
}

// Fetch implements monitor.Provider. Before a flight is selected there is
// nothing to track: the fetch reports ErrNoFlight and the snapshot stays
// absent.
func (f *FlightStatus) Fetch(ctx context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	if f.cfg.APIKey == "" || f.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: flight status api key and base url", ErrMissingCredential)
	}
	if tc.FlightNumber == "" {
		return nil, ErrNoFlight
	}

	q := url.Values{}
	q.Set("flight", tc.FlightNumber)
	q.Set("api_key", f.cfg.APIKey)

	var raw flightResponse
	if err := getJSON(ctx, f.cfg.Client, f.cfg.BaseURL+"/status?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("flight %s: %w", tc.FlightNumber, err)
	}

	return monitor.FlightStatus{
		FlightNumber: tc.FlightNumber,
		Status:       raw.Status,
		Delayed:      raw.Delayed,
		DelayMinutes: raw.DelayMinutes,
		PriceChange:  raw.PriceChange,
	}, nil
}
