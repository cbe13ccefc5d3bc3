package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hazyhaar/escale/monitor"
)

// Availability fetches hotel inventory for the destination and trip dates.
type Availability struct {
	cfg Config
}

// NewAvailability builds the live availability adapter.
func NewAvailability(cfg Config) *Availability {
	cfg.defaults()
	return &Availability{cfg: cfg}
}

// Source implements monitor.Provider.
func (a *Availability) Source() monitor.SourceID { return monitor.SourceAvailability }

type availabilityResponse struct {
	HotelsAvailable bool `json:"hotels_available"`
	LastMinuteDeals bool `json:"last_minute_deals"`
	RoomsLeft       int  `json:"rooms_left"`
}

// Fetch implements monitor.Provider. The destination is the last trip
// location.
func (a *Availability) Fetch(ctx context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	if a.cfg.APIKey == "" || a.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: availability api key and base url", ErrMissingCredential)
	}
	if len(tc.Locations) == 0 {
		return nil, fmt.Errorf("sources: availability: no destination")
	}

	q := url.Values{}
	q.Set("city", tc.Locations[len(tc.Locations)-1])
	q.Set("checkin", tc.CheckIn.Format("2006-01-02"))
	q.Set("checkout", tc.CheckOut.Format("2006-01-02"))
	q.Set("guests", strconv.Itoa(tc.Guests))
	q.Set("api_key", a.cfg.APIKey)

	var raw availabilityResponse
	if err := getJSON(ctx, a.cfg.Client, a.cfg.BaseURL+"/availability?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}

	return monitor.Availability{
		HotelsAvailable: raw.HotelsAvailable,
		LastMinuteDeals: raw.LastMinuteDeals,
		RoomsLeft:       raw.RoomsLeft,
	}, nil
}
