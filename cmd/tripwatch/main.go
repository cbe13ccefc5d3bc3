// Command tripwatch monitors a single trip from the terminal.
//
// It builds the scripted sim feeds, plans a static itinerary, starts one
// monitoring session, and prints every detected change and adaptation
// proposal as NDJSON on stdout until interrupted:
//
//	tripwatch -origin Mumbai -dest Goa -days 4 -speed 60
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/monitor"
	"github.com/hazyhaar/escale/planner"
	"github.com/hazyhaar/escale/sources"
	"github.com/hazyhaar/escale/trip"
)

func main() {
	origin := flag.String("origin", "Mumbai", "where the trip starts")
	dest := flag.String("dest", "Goa", "destination to monitor")
	theme := flag.String("theme", "beach", "trip theme")
	budget := flag.Float64("budget", 30000, "trip budget")
	travelers := flag.Int("travelers", 2, "number of travelers")
	days := flag.Int("days", 3, "trip length in days")
	speed := flag.Int("speed", 1, "interval divisor, larger runs faster")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	req := trip.Request{
		From:         *origin,
		Destination:  *dest,
		Theme:        *theme,
		Budget:       *budget,
		Travelers:    *travelers,
		DurationDays: *days,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, *days),
	}

	if err := run(ctx, logger, req, *speed); err != nil {
		logger.Error("tripwatch: fatal", "error", err)
		os.Exit(1)
	}
}

// event is one NDJSON output line.
type event struct {
	Type            string              `json:"type"`
	At              time.Time           `json:"at"`
	SessionID       string              `json:"session_id,omitempty"`
	Destination     string              `json:"destination,omitempty"`
	Source          monitor.SourceID    `json:"source,omitempty"`
	Kind            monitor.ChangeKind  `json:"kind,omitempty"`
	Severity        monitor.Severity    `json:"severity,omitempty"`
	Message         string              `json:"message,omitempty"`
	Location        string              `json:"location,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
	Adaptation      *monitor.Adaptation `json:"adaptation,omitempty"`
	Changes         int64               `json:"changes,omitempty"`
}

func run(ctx context.Context, logger *slog.Logger, req trip.Request, speed int) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if speed < 1 {
		speed = 1
	}

	res, err := planner.Static{}.Generate(ctx, planner.RequestFrom(req))
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	intervals := make(map[monitor.SourceID]time.Duration, len(monitor.AllSources))
	for _, src := range monitor.AllSources {
		intervals[src] = monitor.DefaultIntervals[src] / time.Duration(speed)
	}

	sess, err := monitor.NewSession(idgen.New(), req, res.Itinerary, monitor.Options{
		Providers: sources.SimProviders(2),
		Intervals: intervals,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	printed := make(map[string]bool)
	sess.SubscribeAll(func(c monitor.Change) {
		enc.Encode(event{
			Type:            "change",
			At:              c.At,
			Source:          c.Source,
			Kind:            c.Kind,
			Severity:        c.Severity,
			Message:         c.Message,
			Location:        c.Location,
			Recommendations: c.Recommendations,
		})
		for _, ad := range sess.PendingAdaptations() {
			if printed[ad.ID] {
				continue
			}
			printed[ad.ID] = true
			enc.Encode(event{Type: "proposal", At: time.Now(), Adaptation: &ad})
		}
	})

	if err := sess.Start(ctx); err != nil {
		return err
	}
	enc.Encode(event{Type: "start", At: time.Now(), SessionID: sess.ID(), Destination: req.Destination})

	<-ctx.Done()
	sess.Stop()

	st := sess.Stats()
	enc.Encode(event{Type: "stop", At: time.Now(), SessionID: sess.ID(), Changes: st.Changes})
	return nil
}
