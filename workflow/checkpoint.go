package workflow

import (
	"context"
	"sync"

	"github.com/skyelabs/skye-agent/core"
)

// Store persists session checkpoints keyed by session id.
//
// Load returns core.ErrSessionNotFound when no checkpoint exists. Save
// must be atomic per session: readers see either the previous checkpoint
// or the new one, never a partial write.
type Store interface {
	Load(ctx context.Context, sessionID string) (*core.SessionState, error)
	Save(ctx context.Context, state *core.SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps checkpoints in process memory. Suitable for tests
// and single-instance deployments without durability requirements.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.SessionState
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*core.SessionState)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*core.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, state *core.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.SessionID] = state.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
