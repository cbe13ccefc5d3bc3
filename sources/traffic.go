package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hazyhaar/escale/monitor"
)

// Traffic fetches congestion per trip route from a flow endpoint, in trip
// order. There is no default endpoint; the aggregator URL comes from
// configuration.
type Traffic struct {
	cfg Config
}

// NewTraffic builds the live traffic adapter.
func NewTraffic(cfg Config) *Traffic {
	cfg.defaults()
	return &Traffic{cfg: cfg}
}

// Source implements monitor.Provider.
func (t *Traffic) Source() monitor.SourceID { return monitor.SourceTraffic }

// trafficResponse is the upstream shape. Delay comes from delay_minutes,
// falling back to delayMin.
type trafficResponse struct {
	DelayMinutes *int     `json:"delay_minutes"`
	DelayMin     *int     `json:"delayMin"`
	Incidents    []string `json:"incidents"`
}

// Fetch implements monitor.Provider. One upstream call per route; any
// failing route fails the whole fetch.
func (t *Traffic) Fetch(ctx context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	if t.cfg.APIKey == "" || t.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: traffic api key and base url", ErrMissingCredential)
	}

	routes := make([]monitor.RouteTraffic, 0, len(tc.Routes))
	for _, r := range tc.Routes {
		q := url.Values{}
		q.Set("from", r.From)
		q.Set("to", r.To)
		q.Set("api_key", t.cfg.APIKey)

		var raw trafficResponse
		if err := getJSON(ctx, t.cfg.Client, t.cfg.BaseURL+"/flow?"+q.Encode(), &raw); err != nil {
			return nil, fmt.Errorf("traffic %s-%s: %w", r.From, r.To, err)
		}

		delay := 0
		switch {
		case raw.DelayMinutes != nil:
			delay = *raw.DelayMinutes
		case raw.DelayMin != nil:
			delay = *raw.DelayMin
		}
		routes = append(routes, monitor.RouteTraffic{
			Route:        r,
			DelayMinutes: delay,
			Incidents:    raw.Incidents,
		})
	}
	return monitor.TrafficReport{Routes: routes}, nil
}
