package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/escale/trip"
)

const maxBody = 4 << 20

// HTTPConfig configures the external-planner client.
type HTTPConfig struct {
	// BaseURL is the planner service root. Required.
	BaseURL string

	// Client defaults to a fresh http.Client with Timeout applied.
	Client *http.Client

	// Timeout defaults to 60s. Itinerary generation is slow upstream.
	Timeout time.Duration
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
}

// HTTPClient calls an external planner service over JSON.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTP builds the client. BaseURL must be set.
func NewHTTP(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("planner: base url required")
	}
	cfg.defaults()
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.Client,
	}, nil
}

// planResponse is the planner service wire shape. Itinerary stays raw
// because services return either a plain string or a structured day list.
type planResponse struct {
	Itinerary json.RawMessage `json:"itinerary"`
	SessionID string          `json:"session_id"`
	State     map[string]any  `json:"state"`
}

// Generate POSTs the request and decodes the plan. HTML-looking itinerary
// text is normalized to markdown before it becomes the content.
func (c *HTTPClient) Generate(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("planner: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("planner: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("planner: post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("planner: http %d from %s", res.StatusCode, c.baseURL)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("planner: read response: %w", err)
	}
	var wire planResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("planner: json decode: %w", err)
	}

	content, err := flattenItinerary(wire.Itinerary)
	if err != nil {
		return nil, err
	}
	if looksLikeHTML(content) {
		content = normalizeFrom(content, c.baseURL)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPlan
	}

	return &PlanResult{
		Itinerary: trip.Itinerary{
			Content:          content,
			GeneratedAt:      time.Now().UTC(),
			PlannerSessionID: wire.SessionID,
		},
		SessionID: wire.SessionID,
		State:     wire.State,
	}, nil
}

// flattenItinerary accepts the two shapes planner services produce: a plain
// string, or {"days":[{"title","plan"}]} which flattens to titled blocks.
func flattenItinerary(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyPlan
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var structured struct {
		Days []struct {
			Title string `json:"title"`
			Plan  string `json:"plan"`
		} `json:"days"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return "", fmt.Errorf("planner: unrecognized itinerary shape: %w", err)
	}
	if len(structured.Days) == 0 {
		return "", ErrEmptyPlan
	}

	var b strings.Builder
	for i, d := range structured.Days {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if d.Title != "" {
			b.WriteString(d.Title)
			b.WriteString("\n")
		}
		b.WriteString(d.Plan)
	}
	return b.String(), nil
}
