// Package monitor implements per-trip real-time monitoring: independent
// per-source polling schedules, snapshot diffing, severity-tagged change
// fan-out, and adaptation proposals against the generated itinerary.
//
// A Session owns every moving part for one trip (snapshot store, provider
// set, detector, notification bus, adaptation engine, timer registry), so
// there is no ambient global state. All shared mutation funnels through the
// fetch-completion path under one session mutex: snapshot writes land in
// completion order (last writer wins per source), detection and delivery run
// synchronously on that path, and results arriving after Stop are discarded.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/escale/monitor/internal/sched"
	"github.com/hazyhaar/escale/trip"
)

// Options configures a Session.
type Options struct {
	// Providers supplies one adapter per source. Required, non-empty.
	Providers []Provider

	// Intervals overrides the default per-source refresh intervals.
	Intervals map[SourceID]time.Duration

	// HistorySize bounds the recent-change list kept for polling clients.
	HistorySize int

	// Detector overrides the built-in rule set.
	Detector Detector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.HistorySize <= 0 {
		o.HistorySize = 100
	}
	if o.Detector == nil {
		o.Detector = RuleDetector{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// sourceState tracks one source's schedule and fetch outcomes.
type sourceState struct {
	interval     time.Duration
	enabled      bool
	fetches      int64
	failures     int64
	lastError    string
	lastAttempt  time.Time
	lastSuccess  time.Time
	lastDuration time.Duration
}

// SourceStats is a point-in-time copy of one source's counters.
type SourceStats struct {
	Interval     time.Duration `json:"interval"`
	Enabled      bool          `json:"enabled"`
	Fetches      int64         `json:"fetches"`
	Failures     int64         `json:"failures"`
	LastError    string        `json:"last_error,omitempty"`
	LastAttempt  time.Time     `json:"last_attempt,omitzero"`
	LastSuccess  time.Time     `json:"last_success,omitzero"`
	LastDuration time.Duration `json:"last_duration"`
	HasSnapshot  bool          `json:"has_snapshot"`
}

// SessionStats summarizes a session for status surfaces.
type SessionStats struct {
	SessionID string                   `json:"session_id"`
	Active    bool                     `json:"active"`
	Sources   map[SourceID]SourceStats `json:"sources"`
	Changes   int64                    `json:"changes"`
	Bus       BusStats                 `json:"bus"`
}

// Session monitors one trip. Construct with NewSession, drive with Start,
// ForceUpdate, SetInterval, and Stop.
//
// Bus subscribers run synchronously on the fetch-completion path and must
// not call back into session control methods (Start, Stop, ForceUpdate,
// SetInterval) from inside the callback.
type Session struct {
	id  string
	req trip.Request

	store  *SnapshotStore
	bus    *Bus
	engine *Engine
	reg    *sched.Registry
	det    Detector
	logger *slog.Logger

	itin trip.Itinerary // owned copy; mutated only through the engine

	mu        sync.Mutex
	active    bool
	runCtx    context.Context
	runCancel context.CancelFunc
	tc        TripContext
	providers map[SourceID]Provider
	state     map[SourceID]*sourceState
	history   []ChangeRecord
	histCap   int
	seq       int64
	changes   int64
}

// NewSession builds a monitoring session for one trip. The itinerary is
// copied; all later reads and mutations go through the session.
func NewSession(id string, req trip.Request, itin trip.Itinerary, opts Options) (*Session, error) {
	opts.defaults()
	if len(opts.Providers) == 0 {
		return nil, ErrNoProviders
	}

	s := &Session{
		id:        id,
		req:       req,
		store:     NewSnapshotStore(),
		reg:       sched.New(opts.Logger),
		det:       opts.Detector,
		logger:    opts.Logger.With("session_id", id),
		itin:      itin,
		tc:        NewTripContext(req),
		providers: make(map[SourceID]Provider, len(opts.Providers)),
		state:     make(map[SourceID]*sourceState, len(opts.Providers)),
		histCap:   opts.HistorySize,
	}
	s.bus = NewBus(s.logger)
	s.engine = NewEngine(&s.itin, s.logger)

	for _, p := range opts.Providers {
		src := p.Source()
		if _, dup := s.providers[src]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, src)
		}
		s.providers[src] = p

		interval := DefaultIntervals[src]
		if iv, ok := opts.Intervals[src]; ok {
			interval = iv
		}
		if interval <= 0 {
			interval = 10 * time.Minute
		}
		s.state[src] = &sourceState{interval: interval, enabled: true}
	}

	// High-severity changes feed the adaptation engine.
	s.bus.SubscribeAll(s.engine.OnChange)

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Request returns the trip request this session monitors.
func (s *Session) Request() trip.Request { return s.req }

// Active reports whether monitoring is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// --- Lifecycle ---

// Start performs one immediate fetch per enabled source, then schedules
// recurring fetches on each source's own interval. The schedules live until
// Stop or ctx cancellation.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.active = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	runCtx := s.runCtx
	var startable []SourceID
	for src, st := range s.state {
		if st.enabled {
			startable = append(startable, src)
		}
	}
	s.mu.Unlock()

	for _, src := range startable {
		s.schedule(runCtx, src)
	}
	s.logger.Info("monitor: started", "sources", len(startable))
	return nil
}

// Stop cancels every per-source timer and marks the session inactive.
// Idempotent. Fetches already in flight complete but their results are
// discarded before touching the snapshot store.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	cancel := s.runCancel
	s.mu.Unlock()

	s.reg.CancelAll()
	if cancel != nil {
		cancel()
	}
	s.logger.Info("monitor: stopped")
}

// ForceUpdate performs one out-of-band fetch for the source, independent of
// its schedule, and waits for it to complete. The schedule is untouched.
func (s *Session) ForceUpdate(ctx context.Context, src SourceID) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNotActive
	}
	p, ok := s.providers[src]
	tc := s.tc
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}

	start := time.Now()
	payload, err := p.Fetch(ctx, tc)
	s.complete(src, payload, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("monitor: force update %s: %w", src, err)
	}
	return nil
}

// SetInterval updates one source's refresh interval and restarts only that
// source's schedule.
func (s *Session) SetInterval(src SourceID, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	st, ok := s.state[src]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}
	st.interval = d
	restart := s.active && st.enabled
	runCtx := s.runCtx
	s.mu.Unlock()

	if restart {
		s.setTimer(runCtx, src, d)
	}
	return nil
}

// SetEnabled flips one source's enabled flag. Disabling cancels its
// schedule; enabling while active behaves like Start for that source only
// (immediate fetch, then recurring).
func (s *Session) SetEnabled(src SourceID, on bool) error {
	s.mu.Lock()
	st, ok := s.state[src]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}
	if st.enabled == on {
		s.mu.Unlock()
		return nil
	}
	st.enabled = on
	act := s.active
	runCtx := s.runCtx
	s.mu.Unlock()

	if !act {
		return nil
	}
	if on {
		s.schedule(runCtx, src)
	} else {
		s.reg.Cancel(string(src))
	}
	return nil
}

// SetFlightNumber updates the tracked flight for subsequent flight-status
// fetches (set once the user selects a flight).
func (s *Session) SetFlightNumber(fn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tc.FlightNumber = fn
}

// schedule runs one immediate fetch and installs the recurring timer.
func (s *Session) schedule(ctx context.Context, src SourceID) {
	go s.fetchOnce(ctx, src)
	s.mu.Lock()
	interval := s.state[src].interval
	s.mu.Unlock()
	s.setTimer(ctx, src, interval)
}

// setTimer installs or replaces the recurring timer for one source. Each
// tick spawns its own fetch goroutine, so a slow fetch never blocks the
// source's next tick or any other source.
func (s *Session) setTimer(ctx context.Context, src SourceID, interval time.Duration) {
	s.reg.Set(ctx, string(src), interval, func(tickCtx context.Context) {
		go s.fetchOnce(tickCtx, src)
	})
}

// --- Fetch path ---

func (s *Session) fetchOnce(ctx context.Context, src SourceID) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	p, ok := s.providers[src]
	tc := s.tc
	s.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	payload, err := p.Fetch(ctx, tc)
	s.complete(src, payload, err, time.Since(start))
}

// complete is the single mutation point for fetch results. It serializes
// completions across all sources, which yields completion-order snapshot
// writes and per-source ordered change streams.
func (s *Session) complete(src SourceID, payload Payload, err error, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	st, ok := s.state[src]
	if !ok {
		return
	}

	st.fetches++
	st.lastAttempt = time.Now()
	st.lastDuration = dur

	if err != nil {
		st.failures++
		st.lastError = err.Error()
		s.logger.Warn("monitor: fetch failed", "source", src, "error", err)
		return
	}

	prev, had := s.store.Get(src)
	s.store.Put(src, payload)
	st.lastSuccess = time.Now()
	st.lastError = ""

	if !had {
		// First fetch for a source: nothing to diff against.
		return
	}

	for _, c := range s.det.Detect(src, prev.Data, payload) {
		s.changes++
		s.seq++
		s.history = append(s.history, ChangeRecord{Seq: s.seq, Change: c})
		if len(s.history) > s.histCap {
			s.history = s.history[len(s.history)-s.histCap:]
		}
		s.bus.Publish(src, c)
	}
}

// --- Read surfaces ---

// Snapshot returns the latest snapshot for one source.
func (s *Session) Snapshot(src SourceID) (Snapshot, bool) {
	return s.store.Get(src)
}

// Age returns the elapsed time since one source's last successful fetch.
func (s *Session) Age(src SourceID) (time.Duration, bool) {
	return s.store.Age(src)
}

// Fresh reports whether the source's snapshot is younger than maxAge.
func (s *Session) Fresh(src SourceID, maxAge time.Duration) bool {
	return s.store.Fresh(src, maxAge)
}

// Changes returns history records with Seq greater than after, plus the
// newest sequence number for use as the next cursor.
func (s *Session) Changes(after int64) ([]ChangeRecord, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ChangeRecord
	for _, rec := range s.history {
		if rec.Seq > after {
			out = append(out, rec)
		}
	}
	return out, s.seq
}

// Subscribe registers a listener for one source's change stream.
func (s *Session) Subscribe(src SourceID, fn Listener) string {
	return s.bus.Subscribe(src, fn)
}

// SubscribeAll registers a listener for every source.
func (s *Session) SubscribeAll(fn Listener) []string {
	return s.bus.SubscribeAll(fn)
}

// Unsubscribe removes a subscription made with Subscribe.
func (s *Session) Unsubscribe(src SourceID, id string) bool {
	return s.bus.Unsubscribe(src, id)
}

// Stats returns a point-in-time summary of the session.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := SessionStats{
		SessionID: s.id,
		Active:    s.active,
		Sources:   make(map[SourceID]SourceStats, len(s.state)),
		Changes:   s.changes,
		Bus:       s.bus.Stats(),
	}
	for src, st := range s.state {
		_, has := s.store.Get(src)
		out.Sources[src] = SourceStats{
			Interval:     st.interval,
			Enabled:      st.enabled,
			Fetches:      st.fetches,
			Failures:     st.failures,
			LastError:    st.lastError,
			LastAttempt:  st.lastAttempt,
			LastSuccess:  st.lastSuccess,
			LastDuration: st.lastDuration,
			HasSnapshot:  has,
		}
	}
	return out
}

// --- Adaptation passthrough ---

// Adaptations returns every adaptation in proposal order.
func (s *Session) Adaptations() []Adaptation { return s.engine.Adaptations() }

// PendingAdaptations returns the adaptations still proposed.
func (s *Session) PendingAdaptations() []Adaptation { return s.engine.Pending() }

// ApplyAdaptation applies one adaptation by id.
func (s *Session) ApplyAdaptation(id string) error { return s.engine.Apply(id) }

// DismissAdaptation dismisses one adaptation by id.
func (s *Session) DismissAdaptation(id string) error { return s.engine.Dismiss(id) }

// ApplyAllAdaptations applies every proposed adaptation independently, in
// proposal order.
func (s *Session) ApplyAllAdaptations() []ApplyOutcome { return s.engine.ApplyAll() }

// ItineraryContent returns the current itinerary text.
func (s *Session) ItineraryContent() string { return s.engine.ItineraryContent() }

// ReplaceItinerary swaps in a regenerated itinerary (e.g. after booking
// confirmation).
func (s *Session) ReplaceItinerary(it trip.Itinerary) { s.engine.ReplaceItinerary(it) }
