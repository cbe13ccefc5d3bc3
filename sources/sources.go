// Package sources adapts external data feeds to the monitor's canonical
// payload shapes. One adapter per source; each owns its raw wire format and
// maps it to the canonical struct at this boundary, with any ordered field
// fallbacks stated here and nowhere else.
//
// An adapter missing its credential or endpoint reports that explicitly; it
// never fabricates a reading. The Sim variants are the opposite: scripted,
// deterministic feeds selected by configuration for demos and tests.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrMissingCredential marks a provider that cannot fetch because its API
// key or endpoint is not configured. The monitor records the failure and
// keeps whatever snapshot it already has.
var ErrMissingCredential = errors.New("sources: missing credential")

// ErrNoFlight marks a flight-status fetch attempted before a flight was
// selected for the trip.
var ErrNoFlight = errors.New("sources: no flight selected")

const maxBody = 4 * 1024 * 1024

// Config carries the common knobs of the live adapters.
type Config struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
}

// getJSON fetches rawURL and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("sources: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sources: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sources: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("sources: read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("sources: json decode: %w", err)
	}
	return nil
}
