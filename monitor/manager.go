package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/hazyhaar/escale/trip"
)

// Manager tracks monitoring sessions by id. One process typically holds a
// single Manager; each trip gets its own Session.
type Manager struct {
	base   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager. base supplies the defaults for every
// session it creates; per-call options override per field.
func NewManager(base Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		base:     base,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create builds, registers, and starts a session for the trip. A live
// session under the same id is stopped and replaced.
func (m *Manager) Create(ctx context.Context, id string, req trip.Request, itin trip.Itinerary, opts *Options) (*Session, error) {
	eff := m.base
	if opts != nil {
		if len(opts.Providers) > 0 {
			eff.Providers = opts.Providers
		}
		if len(opts.Intervals) > 0 {
			eff.Intervals = opts.Intervals
		}
		if opts.HistorySize > 0 {
			eff.HistorySize = opts.HistorySize
		}
		if opts.Detector != nil {
			eff.Detector = opts.Detector
		}
		if opts.Logger != nil {
			eff.Logger = opts.Logger
		}
	}
	if eff.Logger == nil {
		eff.Logger = m.logger
	}

	s, err := NewSession(id, req, itin, eff)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if old, ok := m.sessions[id]; ok {
		old.Stop()
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Get returns the session registered under id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Stop stops and removes one session. Reports whether it existed.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if ok {
		s.Stop()
	}
	return ok
}

// StopAll stops and removes every session. Called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Stop()
	}
}

// List returns the registered session ids, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
