package checkout

import (
	"context"
	"sync"
)

// MemorySessionStore is an in-memory SessionStore for tests and local
// development.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session

	// SaveFunc overrides Save when set.
	SaveFunc func(ctx context.Context, s Session) error
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Save implements SessionStore.
func (m *MemorySessionStore) Save(ctx context.Context, s Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Get implements SessionStore.
func (m *MemorySessionStore) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Delete implements SessionStore.
func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
