package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Listener receives changes for one source.
type Listener func(Change)

// Bus fans changes out to per-source subscriber lists. Delivery is
// synchronous and in registration order within one source; there is no
// ordering guarantee across sources. A panicking subscriber is recovered
// and logged and does not stop the remaining subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[SourceID][]subscriber
	nextID int64
	logger *slog.Logger

	published atomic.Int64
	delivered atomic.Int64
	panics    atomic.Int64
}

type subscriber struct {
	id string
	fn Listener
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[SourceID][]subscriber),
		logger: logger,
	}
}

// Subscribe registers fn for one source and returns a subscription id.
func (b *Bus) Subscribe(source SourceID, fn Listener) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := fmt.Sprintf("sub-%d", b.nextID)
	b.subs[source] = append(b.subs[source], subscriber{id: id, fn: fn})
	return id
}

// SubscribeAll registers fn for every known source and returns the
// subscription ids in AllSources order.
func (b *Bus) SubscribeAll(fn Listener) []string {
	ids := make([]string, 0, len(AllSources))
	for _, src := range AllSources {
		ids = append(ids, b.Subscribe(src, fn))
	}
	return ids
}

// Unsubscribe removes a subscription. It reports whether the id was found.
func (b *Bus) Unsubscribe(source SourceID, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[source]
	for i, s := range list {
		if s.id == id {
			b.subs[source] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers the change to every subscriber of its source, in
// registration order.
func (b *Bus) Publish(source SourceID, c Change) {
	b.mu.Lock()
	list := make([]subscriber, len(b.subs[source]))
	copy(list, b.subs[source])
	b.mu.Unlock()

	b.published.Add(1)
	for _, s := range list {
		b.deliver(s, c)
	}
}

func (b *Bus) deliver(s subscriber, c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("monitor: subscriber panicked",
				"subscription", s.id, "source", c.Source, "kind", c.Kind, "panic", r)
		}
	}()
	s.fn(c)
	b.delivered.Add(1)
}

// BusStats is a point-in-time snapshot of bus counters.
type BusStats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Panics    int64 `json:"panics"`
}

// Stats returns current counter values.
func (b *Bus) Stats() BusStats {
	return BusStats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}
