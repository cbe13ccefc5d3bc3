// Command escale is the travel planning and monitoring service.
//
// Usage:
//
//	escale -config escale.yaml        # HTTP API server
//	escale -config escale.yaml -mcp   # MCP server over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/escale/amadeus"
	"github.com/hazyhaar/escale/booking"
	"github.com/hazyhaar/escale/config"
	"github.com/hazyhaar/escale/dbopen"
	"github.com/hazyhaar/escale/mcptool"
	"github.com/hazyhaar/escale/monitor"
	"github.com/hazyhaar/escale/outbox"
	"github.com/hazyhaar/escale/planner"
	"github.com/hazyhaar/escale/sources"
)

const version = "1.0.0"

// simFlipAt is the fetch step where sim providers start reporting
// disturbances, so a demo server produces changes after a few polls.
const simFlipAt = 3

func main() {
	configPath := flag.String("config", "", "path to escale.yaml config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	// Local development keeps secrets in .env; deployments set real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Logs go to stderr: in MCP mode stdout carries the protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Server.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *mcpMode); err != nil {
		logger.Error("escale: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, mcpMode bool) error {
	bookDB, err := dbopen.Open(cfg.DB.BookingsPath, dbopen.WithMkdirAll(), dbopen.WithSchema(booking.Schema))
	if err != nil {
		return fmt.Errorf("bookings db: %w", err)
	}
	defer bookDB.Close()

	outDB, err := dbopen.Open(cfg.DB.OutboxPath, dbopen.WithMkdirAll(), dbopen.WithSchema(outbox.Schema))
	if err != nil {
		return fmt.Errorf("outbox db: %w", err)
	}
	defer outDB.Close()

	plan, closePlanner, err := newPlanner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	defer closePlanner()

	search, err := amadeus.NewClient(amadeus.Config{
		Key:     cfg.Amadeus.Key,
		Secret:  cfg.Amadeus.Secret,
		BaseURL: cfg.Amadeus.BaseURL,
	})
	if errors.Is(err, amadeus.ErrNotConfigured) {
		logger.Info("amadeus credentials absent, search endpoints serve fallback offers")
		search = nil
	} else if err != nil {
		return fmt.Errorf("amadeus: %w", err)
	}

	providers := newProviders(cfg)
	mgr := monitor.NewManager(monitor.Options{
		Providers:   providers,
		Intervals:   cfg.MonitorIntervals(),
		HistorySize: cfg.Monitor.HistorySize,
	}, logger)
	defer mgr.StopAll()

	ob := outbox.New(outDB, outbox.Options{Logger: logger})
	flow := booking.NewFlow(booking.NewStore(bookDB), planner.Regen{Client: plan}, booking.FlowOptions{Logger: logger})

	if mcpMode {
		return runMCP(ctx, logger, providers, search, flow)
	}

	a := &app{
		runCtx:    ctx,
		logger:    logger,
		plan:      plan,
		search:    search,
		mgr:       mgr,
		flow:      flow,
		outbox:    ob,
		providers: providers,
	}
	return serveHTTP(ctx, logger, cfg.Server.Addr, a.routes())
}

// newPlanner builds the configured planner client and a close function.
func newPlanner(ctx context.Context, cfg *config.Config) (planner.Client, func(), error) {
	noop := func() {}
	switch cfg.Planner.Kind {
	case "static":
		return planner.Static{}, noop, nil
	case "http":
		c, err := planner.NewHTTP(planner.HTTPConfig{BaseURL: cfg.Planner.BaseURL})
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "gemini":
		g, err := planner.NewGemini(ctx, cfg.Planner.APIKey, cfg.Planner.Model)
		if err != nil {
			return nil, noop, err
		}
		return g, func() { g.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown planner kind %q", cfg.Planner.Kind)
	}
}

// newProviders builds the monitoring sources. Live adapters tolerate missing
// credentials at construction and report them per fetch instead.
func newProviders(cfg *config.Config) []monitor.Provider {
	if cfg.Providers.Mode == "sim" {
		return sources.SimProviders(simFlipAt)
	}
	return []monitor.Provider{
		sources.NewWeather(sources.Config{APIKey: cfg.Providers.Weather.APIKey, BaseURL: cfg.Providers.Weather.BaseURL}),
		sources.NewTraffic(sources.Config{APIKey: cfg.Providers.Traffic.APIKey, BaseURL: cfg.Providers.Traffic.BaseURL}),
		sources.NewEvents(sources.Config{APIKey: cfg.Providers.Events.APIKey, BaseURL: cfg.Providers.Events.BaseURL}),
		sources.NewFlightStatus(sources.Config{APIKey: cfg.Providers.FlightStatus.APIKey, BaseURL: cfg.Providers.FlightStatus.BaseURL}),
		sources.NewAvailability(sources.Config{APIKey: cfg.Providers.Availability.APIKey, BaseURL: cfg.Providers.Availability.BaseURL}),
	}
}

func runMCP(ctx context.Context, logger *slog.Logger, providers []monitor.Provider, search *amadeus.Client, flow *booking.Flow) error {
	deps := mcptool.Deps{Booking: flow, Logger: logger}
	for _, p := range providers {
		switch p.Source() {
		case monitor.SourceWeather:
			deps.Weather = p
		case monitor.SourceEvents:
			deps.Events = p
		}
	}
	if search != nil {
		deps.Flights = search
		deps.Hotels = search
	}
	srv := mcptool.NewServer(deps, version)
	logger.Info("mcp server starting", "transport", "stdio")
	return srv.Run(ctx, &sdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
