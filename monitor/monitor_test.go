package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// fakeSource returns scripted payloads in order, repeating the last one.
// A non-nil gate blocks every Fetch until the gate closes or ctx ends.
type fakeSource struct {
	src  SourceID
	gate chan struct{}

	mu       sync.Mutex
	payloads []Payload
	err      error
	next     int
	lastTC   TripContext

	fetches atomic.Int64
}

func (f *fakeSource) Source() SourceID { return f.src }

func (f *fakeSource) Fetch(ctx context.Context, tc TripContext) (Payload, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTC = tc
	if f.err != nil {
		return nil, f.err
	}
	p := f.payloads[f.next]
	if f.next < len(f.payloads)-1 {
		f.next++
	}
	return p, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testRequest() trip.Request {
	return trip.Request{
		From:        "Mumbai",
		Destination: "Goa",
		Budget:      50000,
		Travelers:   2,
		StartDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

// slowIntervals keeps every recurring timer out of the way so tests drive
// fetches explicitly.
func slowIntervals(srcs ...SourceID) map[SourceID]time.Duration {
	m := make(map[SourceID]time.Duration, len(srcs))
	for _, s := range srcs {
		m[s] = time.Hour
	}
	return m
}

func startSession(t *testing.T, providers ...Provider) *Session {
	t.Helper()
	srcs := make([]SourceID, len(providers))
	for i, p := range providers {
		srcs[i] = p.Source()
	}
	s, err := NewSession("sess-test", testRequest(),
		trip.Itinerary{Content: "Day 1: Outdoor sightseeing at the fort."},
		Options{Providers: providers, Intervals: slowIntervals(srcs...)})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestNewSession_Validation(t *testing.T) {
	if _, err := NewSession("s", testRequest(), trip.Itinerary{}, Options{}); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("no providers: err = %v, want ErrNoProviders", err)
	}

	dup := Options{Providers: []Provider{
		&fakeSource{src: SourceWeather, payloads: []Payload{WeatherReport{}}},
		&fakeSource{src: SourceWeather, payloads: []Payload{WeatherReport{}}},
	}}
	if _, err := NewSession("s", testRequest(), trip.Itinerary{}, dup); !errors.Is(err, ErrDuplicateProvider) {
		t.Fatalf("duplicate providers: err = %v, want ErrDuplicateProvider", err)
	}
}

func TestSession_StartFetchesImmediately(t *testing.T) {
	f := &fakeSource{src: SourceTraffic, payloads: []Payload{
		TrafficReport{Routes: []RouteTraffic{{Route: trip.Route{From: "Mumbai", To: "Goa"}, DelayMinutes: 5}}},
	}}
	s := startSession(t, f)

	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceTraffic)
		return ok
	})

	// The very first fetch seeds the store and never emits changes.
	if recs, _ := s.Changes(0); len(recs) != 0 {
		t.Fatalf("first fetch emitted %d changes, want 0", len(recs))
	}
	if got := s.Stats().Sources[SourceTraffic].Fetches; got != 1 {
		t.Fatalf("Fetches = %d, want 1", got)
	}
}

func TestSession_DetectsAcrossFetches(t *testing.T) {
	f := &fakeSource{src: SourceTraffic, payloads: []Payload{
		TrafficReport{Routes: []RouteTraffic{{Route: trip.Route{From: "Mumbai", To: "Goa"}, DelayMinutes: 5}}},
		TrafficReport{Routes: []RouteTraffic{{Route: trip.Route{From: "Mumbai", To: "Goa"}, DelayMinutes: 25}}},
	}}
	s := startSession(t, f)
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceTraffic)
		return ok
	})

	var heard []Change
	var mu sync.Mutex
	s.Subscribe(SourceTraffic, func(c Change) {
		mu.Lock()
		heard = append(heard, c)
		mu.Unlock()
	})

	if err := s.ForceUpdate(context.Background(), SourceTraffic); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}

	recs, seq := s.Changes(0)
	if len(recs) != 1 {
		t.Fatalf("got %d changes, want 1", len(recs))
	}
	if recs[0].Kind != ChangeTrafficDelay || recs[0].Severity != SeverityHigh {
		t.Fatalf("change = %+v, want high traffic_delay", recs[0].Change)
	}
	if recs[0].Seq != 1 || seq != 1 {
		t.Fatalf("seq = %d/%d, want 1/1", recs[0].Seq, seq)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(heard) != 1 {
		t.Fatalf("subscriber heard %d changes, want 1", len(heard))
	}
}

func TestSession_ChangesCursor(t *testing.T) {
	f := &fakeSource{src: SourceFlightStatus, payloads: []Payload{
		FlightStatus{FlightNumber: "AI-202"},
		FlightStatus{FlightNumber: "AI-202", Delayed: true, DelayMinutes: 30},
		FlightStatus{FlightNumber: "AI-202", Delayed: true, DelayMinutes: 30, PriceChange: 1500},
	}}
	s := startSession(t, f)
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceFlightStatus)
		return ok
	})

	if err := s.ForceUpdate(context.Background(), SourceFlightStatus); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}
	recs, cursor := s.Changes(0)
	if len(recs) != 1 || recs[0].Kind != ChangeFlightDelay {
		t.Fatalf("first poll = %+v", recs)
	}

	if err := s.ForceUpdate(context.Background(), SourceFlightStatus); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}
	recs, _ = s.Changes(cursor)
	if len(recs) != 1 || recs[0].Kind != ChangePrice {
		t.Fatalf("poll after cursor = %+v, want only the price change", recs)
	}
}

func TestSession_FailedFetchKeepsSnapshot(t *testing.T) {
	f := &fakeSource{src: SourceWeather, payloads: []Payload{
		weatherAt("Goa", 31, "clear", 3),
	}}
	s := startSession(t, f)
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceWeather)
		return ok
	})

	f.fail(errors.New("upstream 503"))
	err := s.ForceUpdate(context.Background(), SourceWeather)
	if err == nil {
		t.Fatal("ForceUpdate must surface the fetch error")
	}

	snap, ok := s.Snapshot(SourceWeather)
	if !ok {
		t.Fatal("failed fetch must not evict the previous snapshot")
	}
	if snap.Data.(WeatherReport).Readings[0].TempC != 31 {
		t.Fatal("snapshot content must be the last successful payload")
	}

	st := s.Stats().Sources[SourceWeather]
	if st.Failures != 1 {
		t.Fatalf("Failures = %d, want 1", st.Failures)
	}
	if st.LastError == "" {
		t.Fatal("LastError must record the failure")
	}
	if recs, _ := s.Changes(0); len(recs) != 0 {
		t.Fatalf("failed fetch emitted %d changes, want 0", len(recs))
	}
}

func TestSession_StopDiscardsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeSource{
		src:      SourceEvents,
		gate:     gate,
		payloads: []Payload{EventsReport{}},
	}
	s := startSession(t, f)

	// The immediate fetch is now parked on the gate.
	waitFor(t, 2*time.Second, func() bool { return f.fetches.Load() >= 1 })
	s.Stop()
	close(gate)

	// Give the released fetch a moment to run its completion path.
	time.Sleep(20 * time.Millisecond)
	if _, ok := s.Snapshot(SourceEvents); ok {
		t.Fatal("result arriving after Stop must not reach the store")
	}
}

func TestSession_StopIsIdempotentAndRestartable(t *testing.T) {
	f := &fakeSource{src: SourceAvailability, payloads: []Payload{Availability{HotelsAvailable: true}}}
	s := startSession(t, f)

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Start = %v, want ErrAlreadyActive", err)
	}

	s.Stop()
	s.Stop() // no-op
	if s.Active() {
		t.Fatal("session still active after Stop")
	}
	if err := s.ForceUpdate(context.Background(), SourceAvailability); !errors.Is(err, ErrNotActive) {
		t.Fatalf("ForceUpdate after Stop = %v, want ErrNotActive", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceAvailability)
		return ok
	})
}

func TestSession_ForceUpdateUnknownSource(t *testing.T) {
	f := &fakeSource{src: SourceWeather, payloads: []Payload{WeatherReport{}}}
	s := startSession(t, f)
	if err := s.ForceUpdate(context.Background(), SourceTraffic); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestSession_SetIntervalRestartsOnlyThatSource(t *testing.T) {
	weather := &fakeSource{src: SourceWeather, payloads: []Payload{WeatherReport{}}}
	traffic := &fakeSource{src: SourceTraffic, payloads: []Payload{TrafficReport{}}}
	s := startSession(t, weather, traffic)

	waitFor(t, 2*time.Second, func() bool {
		return weather.fetches.Load() >= 1 && traffic.fetches.Load() >= 1
	})

	if err := s.SetInterval(SourceWeather, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("zero interval = %v, want ErrInvalidInterval", err)
	}
	if err := s.SetInterval(SourceEvents, time.Minute); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("unknown source = %v, want ErrUnknownSource", err)
	}

	if err := s.SetInterval(SourceWeather, 5*time.Millisecond); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return weather.fetches.Load() >= 4 })

	if got := traffic.fetches.Load(); got != 1 {
		t.Fatalf("traffic fetches = %d, want untouched at 1", got)
	}
	if got := s.Stats().Sources[SourceWeather].Interval; got != 5*time.Millisecond {
		t.Fatalf("stats interval = %v, want 5ms", got)
	}
}

func TestSession_SetEnabled(t *testing.T) {
	f := &fakeSource{src: SourceWeather, payloads: []Payload{WeatherReport{}}}
	s, err := NewSession("sess-test", testRequest(), trip.Itinerary{},
		Options{
			Providers: []Provider{f},
			Intervals: map[SourceID]time.Duration{SourceWeather: 5 * time.Millisecond},
		})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)

	waitFor(t, 2*time.Second, func() bool { return f.fetches.Load() >= 2 })

	if err := s.SetEnabled(SourceWeather, false); err != nil {
		t.Fatalf("SetEnabled(false): %v", err)
	}
	settled := f.fetches.Load()
	time.Sleep(30 * time.Millisecond)
	if got := f.fetches.Load(); got > settled+1 {
		t.Fatalf("disabled source still fetching: %d then %d", settled, got)
	}

	if err := s.SetEnabled(SourceWeather, true); err != nil {
		t.Fatalf("SetEnabled(true): %v", err)
	}
	reenabled := f.fetches.Load()
	waitFor(t, 2*time.Second, func() bool { return f.fetches.Load() >= reenabled+2 })
}

func TestSession_SetFlightNumberReachesProvider(t *testing.T) {
	f := &fakeSource{src: SourceFlightStatus, payloads: []Payload{FlightStatus{}}}
	s := startSession(t, f)
	waitFor(t, 2*time.Second, func() bool { return f.fetches.Load() >= 1 })

	s.SetFlightNumber("AI-202")
	if err := s.ForceUpdate(context.Background(), SourceFlightStatus); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastTC.FlightNumber != "AI-202" {
		t.Fatalf("provider saw flight %q, want AI-202", f.lastTC.FlightNumber)
	}
}

func TestSession_HighChangeFlowsIntoAdaptations(t *testing.T) {
	f := &fakeSource{src: SourceWeather, payloads: []Payload{
		weatherAt("Goa", 31, "clear", 3),
		weatherAt("Goa", 42, "clear", 3),
	}}
	s := startSession(t, f)
	waitFor(t, 2*time.Second, func() bool {
		_, ok := s.Snapshot(SourceWeather)
		return ok
	})

	if err := s.ForceUpdate(context.Background(), SourceWeather); err != nil {
		t.Fatalf("ForceUpdate: %v", err)
	}

	pending := s.PendingAdaptations()
	if len(pending) != 1 {
		t.Fatalf("got %d pending adaptations, want 1", len(pending))
	}
	if pending[0].Kind != AdaptActivityReplacement {
		t.Fatalf("kind = %q, want activity_replacement", pending[0].Kind)
	}

	if err := s.ApplyAdaptation(pending[0].ID); err != nil {
		t.Fatalf("ApplyAdaptation: %v", err)
	}
	if got := s.ItineraryContent(); got != "Day 1: Indoor museum visits at the fort." {
		t.Fatalf("itinerary = %q", got)
	}
}
