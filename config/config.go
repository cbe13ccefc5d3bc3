// Package config loads the service configuration from YAML, with defaults
// for everything and environment overrides for secrets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/escale/monitor"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Providers ProvidersConfig `yaml:"providers"`
	Amadeus   AmadeusConfig   `yaml:"amadeus"`
	Planner   PlannerConfig   `yaml:"planner"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// DBConfig names the SQLite files.
type DBConfig struct {
	BookingsPath string `yaml:"bookings_path"`
	OutboxPath   string `yaml:"outbox_path"`
}

// MonitorConfig tunes the monitoring sessions. Interval values are
// time.ParseDuration strings keyed by source name.
type MonitorConfig struct {
	Intervals   map[string]string `yaml:"intervals"`
	HistorySize int               `yaml:"history_size"`
}

// ProviderConfig is one live data source's credentials.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig selects the monitoring data sources.
type ProvidersConfig struct {
	Mode         string         `yaml:"mode"` // live | sim
	Weather      ProviderConfig `yaml:"weather"`
	Traffic      ProviderConfig `yaml:"traffic"`
	Events       ProviderConfig `yaml:"events"`
	FlightStatus ProviderConfig `yaml:"flight_status"`
	Availability ProviderConfig `yaml:"availability"`
}

// AmadeusConfig holds the search API credentials.
type AmadeusConfig struct {
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
	BaseURL string `yaml:"base_url"`
}

// PlannerConfig selects the itinerary planner.
type PlannerConfig struct {
	Kind    string `yaml:"kind"` // http | gemini | static
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path yields the default
// configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.DB.BookingsPath == "" {
		c.DB.BookingsPath = "data/bookings.db"
	}
	if c.DB.OutboxPath == "" {
		c.DB.OutboxPath = "data/outbox.db"
	}
	if c.Monitor.HistorySize <= 0 {
		c.Monitor.HistorySize = 100
	}
	if c.Providers.Mode == "" {
		c.Providers.Mode = "sim"
	}
	if c.Planner.Kind == "" {
		c.Planner.Kind = "static"
	}
}

// applyEnv lets deployment secrets override whatever the file says.
func (c *Config) applyEnv() {
	override(&c.Amadeus.Key, "AMADEUS_API_KEY")
	override(&c.Amadeus.Secret, "AMADEUS_API_SECRET")
	override(&c.Providers.Weather.APIKey, "OPENWEATHER_API_KEY")
	override(&c.Providers.Traffic.APIKey, "GOOGLE_MAPS_KEY")
	override(&c.Providers.Events.APIKey, "TICKETMASTER_API_KEY")
	override(&c.Providers.FlightStatus.APIKey, "FLIGHTSTATUS_API_KEY")
	override(&c.Providers.Availability.APIKey, "AVAILABILITY_API_KEY")
	override(&c.Planner.APIKey, "GEMINI_API_KEY")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Server.LogLevel)
	}
	switch c.Providers.Mode {
	case "live", "sim":
	default:
		return fmt.Errorf("config: unknown provider mode %q", c.Providers.Mode)
	}
	switch c.Planner.Kind {
	case "static":
	case "http":
		if c.Planner.BaseURL == "" {
			return fmt.Errorf("config: planner kind http needs base_url")
		}
	case "gemini":
		if c.Planner.APIKey == "" {
			return fmt.Errorf("config: planner kind gemini needs api_key")
		}
	default:
		return fmt.Errorf("config: unknown planner kind %q", c.Planner.Kind)
	}
	for src, raw := range c.Monitor.Intervals {
		if !knownSource(src) {
			return fmt.Errorf("config: unknown monitor source %q", src)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: interval for %s: %w", src, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: interval for %s must be positive, got %s", src, raw)
		}
	}
	return nil
}

func knownSource(name string) bool {
	for _, src := range monitor.AllSources {
		if string(src) == name {
			return true
		}
	}
	return false
}

// MonitorIntervals converts the configured intervals into the monitor's
// option shape. Call after Load; values are already validated.
func (c *Config) MonitorIntervals() map[monitor.SourceID]time.Duration {
	out := make(map[monitor.SourceID]time.Duration, len(c.Monitor.Intervals))
	for src, raw := range c.Monitor.Intervals {
		d, err := time.ParseDuration(raw)
		if err != nil {
			continue
		}
		out[monitor.SourceID(src)] = d
	}
	return out
}

// Level maps the configured log level onto slog's scale.
func (s ServerConfig) Level() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
