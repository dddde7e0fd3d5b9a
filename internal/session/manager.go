package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/resolver"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/store"
)

// ErrUnknownSession is returned when no live session carries the identifier.
var ErrUnknownSession = errors.New("unknown session")

// Manager is the registry of live sessions. Sessions execute fully in
// parallel; the map itself is the only shared state.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Coordinator

	res resolver.Resolver
	st  store.Store
	cfg Config
}

// NewManager wires the resolver, an optional store, and the per-session
// pipeline config.
func NewManager(res resolver.Resolver, st store.Store, cfg Config) *Manager {
	return &Manager{
		sessions: make(map[string]*Coordinator),
		res:      res,
		st:       st,
		cfg:      cfg,
	}
}

// Create starts a fresh session under a new UUID.
func (m *Manager) Create(_ context.Context) *Coordinator {
	id := uuid.NewString()
	c := newCoordinator(id, control.NewState(id), m.res, m.st, m.cfg)
	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()
	return c
}

// Resume restores a persisted session under its prior identifier. Without a
// store, or when nothing was persisted, it starts clean under that id.
func (m *Manager) Resume(ctx context.Context, id string) (*Coordinator, error) {
	if id == "" {
		return nil, fmt.Errorf("empty session id")
	}
	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	state := control.NewState(id)
	if m.st != nil {
		saved, ok, err := m.st.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resume %s: %w", id, err)
		}
		if ok {
			state = saved
		}
	}

	c := newCoordinator(id, state, m.res, m.st, m.cfg)
	m.mu.Lock()
	// a racing Resume may have won; its coordinator is the live one
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = c
	m.mu.Unlock()
	return c, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return c, nil
}

// Close tears one session down and drops it from the registry. Persisted
// state, if any, is kept.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	c.Close()
	return nil
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.sessions {
		c.Close()
		delete(m.sessions, id)
	}
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
