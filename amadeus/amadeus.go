// Package amadeus searches flights and hotels through the Amadeus self-service
// APIs. Credentials are exchanged for a cached OAuth2 token; when credentials
// are absent the search handlers fall back to deterministic generated offers
// instead. Monitoring providers never use this package's fallbacks: a search
// surface may estimate, a monitor may not.
package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the Amadeus test environment. Production runs against
// api.amadeus.com.
const DefaultBaseURL = "https://test.api.amadeus.com"

const (
	maxBody = 4 << 20

	// tokenBuffer refreshes tokens five minutes before upstream expiry.
	tokenBuffer = 5 * time.Minute
)

// ErrNotConfigured is returned by NewClient when either credential is empty.
var ErrNotConfigured = errors.New("amadeus: credentials not configured")

// Config configures a Client.
type Config struct {
	// Key and Secret are the Amadeus API credentials. Both required.
	Key    string
	Secret string

	// BaseURL defaults to the test environment.
	BaseURL string

	// Client defaults to a fresh http.Client with Timeout applied.
	Client *http.Client

	// Timeout defaults to 30s.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
}

// Client talks to the Amadeus APIs with a mutex-guarded token cache.
type Client struct {
	key     string
	secret  string
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a Client or reports missing credentials.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Key) == "" || strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrNotConfigured
	}
	cfg.defaults()
	return &Client{
		key:     cfg.Key,
		secret:  cfg.Secret,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.Client,
	}, nil
}

// accessToken returns the cached token, refreshing through the
// client-credentials grant when it is expired or absent.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.key)
	form.Set("client_secret", c.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amadeus: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus: token request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("amadeus: read token response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("amadeus: token http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var wire struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", fmt.Errorf("amadeus: token decode: %w", err)
	}
	if wire.AccessToken == "" {
		return "", errors.New("amadeus: token response missing access_token")
	}

	c.mu.Lock()
	c.token = wire.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(wire.ExpiresIn)*time.Second - tokenBuffer)
	c.mu.Unlock()
	return wire.AccessToken, nil
}

// getJSON performs an authorized GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("amadeus: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("amadeus: get %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("amadeus: http %d from %s", res.StatusCode, path)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return fmt.Errorf("amadeus: read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("amadeus: json decode: %w", err)
	}
	return nil
}

// parsePrice reads Amadeus decimal-string prices. Zero on garbage.
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDuration renders ISO-8601 durations like PT5H30M as "5h 30m".
func parseDuration(iso string) string {
	s := strings.TrimPrefix(iso, "PT")
	if s == iso || s == "" {
		return iso
	}
	var parts []string
	if i := strings.Index(s, "H"); i >= 0 {
		parts = append(parts, s[:i]+"h")
		s = s[i+1:]
	}
	if i := strings.Index(s, "M"); i >= 0 {
		parts = append(parts, s[:i]+"m")
	}
	return strings.Join(parts, " ")
}

func formatMinutes(minutes int) string {
	h, m := minutes/60, minutes%60
	if h > 0 && m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if h > 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", m)
}
