// Package sched maintains a registry of independently cancellable repeating
// tasks keyed by id. Each entry runs on its own timer goroutine, so one
// source's schedule can be replaced or cancelled without disturbing the
// others.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is invoked on every tick of one entry. It receives the entry's
// context, cancelled when the entry is replaced or cancelled.
type Task func(ctx context.Context)

// Registry holds the scheduled entries.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
}

type entry struct {
	interval time.Duration
	cancel   context.CancelFunc
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Set schedules task to run every interval, keyed by id. An existing entry
// under the same id is cancelled and replaced, restarting its timer. The
// entry's lifetime is bounded by ctx.
//
// Ticks fire on the interval regardless of whether the previous task
// invocation has returned; tasks that must not overlap themselves handle
// that on their side.
func (r *Registry) Set(ctx context.Context, id string, interval time.Duration, task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[id]; ok {
		old.cancel()
	}

	entryCtx, cancel := context.WithCancel(ctx)
	r.entries[id] = &entry{interval: interval, cancel: cancel}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-entryCtx.Done():
				return
			case <-t.C:
				task(entryCtx)
			}
		}
	}()
}

// Cancel stops and removes one entry. It reports whether the id existed.
// Cancellation does not wait for an in-flight task invocation.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.cancel()
	delete(r.entries, id)
	return true
}

// CancelAll stops and removes every entry. Safe to call repeatedly.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		e.cancel()
		delete(r.entries, id)
	}
}

// Active returns the ids with a live schedule.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	return out
}

// Interval returns the configured interval for id.
func (r *Registry) Interval(id string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.interval, true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
