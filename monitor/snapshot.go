package monitor

import (
	"sync"
	"time"
)

// SnapshotStore is the keyed cache of the latest fetched payload per source.
// Snapshots are overwritten on each successful fetch and retained across
// failures (stale but present). No eviction; the store lives as long as its
// session.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap map[SourceID]Snapshot
	now  func() time.Time
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snap: make(map[SourceID]Snapshot),
		now:  time.Now,
	}
}

// Put records data for source with the current timestamp, overwriting any
// prior snapshot.
func (st *SnapshotStore) Put(source SourceID, data Payload) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap[source] = Snapshot{Source: source, Data: data, FetchedAt: st.now()}
}

// Get returns the latest snapshot for source.
func (st *SnapshotStore) Get(source SourceID) (Snapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.snap[source]
	return s, ok
}

// Age returns the elapsed time since the source's last fetch. ok is false
// when no snapshot exists (infinite age).
func (st *SnapshotStore) Age(source SourceID) (time.Duration, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.snap[source]
	if !ok {
		return 0, false
	}
	return st.now().Sub(s.FetchedAt), true
}

// Fresh reports whether the source has a snapshot younger than maxAge.
func (st *SnapshotStore) Fresh(source SourceID, maxAge time.Duration) bool {
	age, ok := st.Age(source)
	return ok && age < maxAge
}

// Sources returns the ids that currently hold a snapshot.
func (st *SnapshotStore) Sources() []SourceID {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]SourceID, 0, len(st.snap))
	for _, id := range AllSources {
		if _, ok := st.snap[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of stored snapshots.
func (st *SnapshotStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.snap)
}
