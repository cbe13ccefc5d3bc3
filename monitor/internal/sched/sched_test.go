package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

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

func TestSet_TicksRepeatedly(t *testing.T) {
	r := New(nil)
	t.Cleanup(r.CancelAll)

	var ticks atomic.Int64
	r.Set(context.Background(), "weather", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	waitFor(t, 2*time.Second, func() bool { return ticks.Load() >= 3 })
}

func TestSet_ReplaceCancelsPrevious(t *testing.T) {
	r := New(nil)
	t.Cleanup(r.CancelAll)

	var first, second atomic.Int64
	r.Set(context.Background(), "traffic", 5*time.Millisecond, func(context.Context) {
		first.Add(1)
	})
	waitFor(t, 2*time.Second, func() bool { return first.Load() >= 1 })

	r.Set(context.Background(), "traffic", 5*time.Millisecond, func(context.Context) {
		second.Add(1)
	})
	waitFor(t, 2*time.Second, func() bool { return second.Load() >= 2 })

	// The replaced task may have one invocation racing the swap, but it
	// must not keep ticking.
	settled := first.Load()
	time.Sleep(30 * time.Millisecond)
	if got := first.Load(); got > settled+1 {
		t.Fatalf("replaced task still ticking: %d then %d", settled, got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestCancel(t *testing.T) {
	r := New(nil)
	t.Cleanup(r.CancelAll)

	var ticks atomic.Int64
	r.Set(context.Background(), "events", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	waitFor(t, 2*time.Second, func() bool { return ticks.Load() >= 1 })

	if !r.Cancel("events") {
		t.Fatal("Cancel returned false for a live entry")
	}
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got > settled+1 {
		t.Fatalf("cancelled task still ticking: %d then %d", settled, got)
	}

	if r.Cancel("events") {
		t.Fatal("second Cancel must return false")
	}
	if r.Cancel("never-set") {
		t.Fatal("Cancel of unknown id must return false")
	}
}

func TestCancelAll(t *testing.T) {
	r := New(nil)
	r.Set(context.Background(), "a", time.Hour, func(context.Context) {})
	r.Set(context.Background(), "b", time.Hour, func(context.Context) {})
	r.Set(context.Background(), "c", time.Hour, func(context.Context) {})

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	r.CancelAll()
	if r.Len() != 0 {
		t.Fatalf("Len() after CancelAll = %d, want 0", r.Len())
	}
	r.CancelAll() // idempotent
}

func TestParentContextStopsTask(t *testing.T) {
	r := New(nil)
	t.Cleanup(r.CancelAll)

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64
	r.Set(ctx, "flight", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	waitFor(t, 2*time.Second, func() bool { return ticks.Load() >= 1 })

	cancel()
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got > settled+1 {
		t.Fatalf("task outlived its context: %d then %d", settled, got)
	}
}

func TestIntervalAndActive(t *testing.T) {
	r := New(nil)
	t.Cleanup(r.CancelAll)

	r.Set(context.Background(), "weather", 30*time.Minute, func(context.Context) {})
	r.Set(context.Background(), "traffic", 5*time.Minute, func(context.Context) {})

	if iv, ok := r.Interval("weather"); !ok || iv != 30*time.Minute {
		t.Fatalf("Interval(weather) = %v, %v", iv, ok)
	}
	if _, ok := r.Interval("events"); ok {
		t.Fatal("Interval of unknown id must report ok=false")
	}

	active := r.Active()
	if len(active) != 2 {
		t.Fatalf("Active() = %v, want 2 ids", active)
	}
}
