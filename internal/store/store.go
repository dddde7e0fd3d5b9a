// Package store persists session state keyed by session identifier. The
// pipeline works without it; when enabled it is write-behind and best-effort.
package store

import (
	"context"
	"sync"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
)

// Store saves and restores session state verbatim: the control value plus the
// ordered conversation history.
type Store interface {
	Save(ctx context.Context, state control.State) error
	Load(ctx context.Context, sessionID string) (control.State, bool, error)
	Delete(ctx context.Context, sessionID string) error
	Close()
}

// Memory is a process-local Store used in tests and single-node deployments
// that don't need durability.
type Memory struct {
	mu     sync.RWMutex
	states map[string]control.State
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]control.State)}
}

func (m *Memory) Save(_ context.Context, state control.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// copy the turn slice so later commits don't alias stored history
	cp := state
	cp.Turns = make([]control.Turn, len(state.Turns))
	copy(cp.Turns, state.Turns)
	m.states[state.SessionID] = cp
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) (control.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[sessionID]
	if !ok {
		return control.State{}, false, nil
	}
	cp := st
	cp.Turns = make([]control.Turn, len(st.Turns))
	copy(cp.Turns, st.Turns)
	return cp, true, nil
}

func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

func (m *Memory) Close() {}
