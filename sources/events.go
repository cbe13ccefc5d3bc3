package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hazyhaar/escale/monitor"
)

// Events fetches the local event list per trip location, in trip order.
type Events struct {
	cfg Config
}

// NewEvents builds the live events adapter.
func NewEvents(cfg Config) *Events {
	cfg.defaults()
	return &Events{cfg: cfg}
}

// Source implements monitor.Provider.
func (e *Events) Source() monitor.SourceID { return monitor.SourceEvents }

// eventsResponse is the upstream shape. An empty availability means the
// event is on sale.
type eventsResponse struct {
	Events []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Date         string `json:"date"`
		Venue        string `json:"venue"`
		Availability string `json:"availability"`
	} `json:"events"`
}

// Fetch implements monitor.Provider. One upstream call per location; any
// failing location fails the whole fetch.
func (e *Events) Fetch(ctx context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	if e.cfg.APIKey == "" || e.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: events api key and base url", ErrMissingCredential)
	}

	locations := make([]monitor.LocationEvents, 0, len(tc.Locations))
	for _, loc := range tc.Locations {
		q := url.Values{}
		q.Set("location", loc)
		q.Set("api_key", e.cfg.APIKey)

		var raw eventsResponse
		if err := getJSON(ctx, e.cfg.Client, e.cfg.BaseURL+"/events?"+q.Encode(), &raw); err != nil {
			return nil, fmt.Errorf("events %s: %w", loc, err)
		}

		events := make([]monitor.Event, 0, len(raw.Events))
		for _, ev := range raw.Events {
			availability := ev.Availability
			if availability == "" {
				availability = monitor.EventAvailable
			}
			events = append(events, monitor.Event{
				ID:           ev.ID,
				Name:         ev.Name,
				Date:         ev.Date,
				Venue:        ev.Venue,
				Availability: availability,
			})
		}
		locations = append(locations, monitor.LocationEvents{Location: loc, Events: events})
	}
	return monitor.EventsReport{Locations: locations}, nil
}
