package cart

import (
	"sync"

	"github.com/tmarchant/vesper/internal/pricing"
)

// PersistenceFactory builds the persistence backend for one shopper's cart.
type PersistenceFactory func(key string) Persistence

// Manager hands out one Store per shopper key, constructing it lazily with
// persistence from the factory. Stores are cached for the process lifetime;
// durability across restarts comes from the persistence layer.
type Manager struct {
	mu      sync.Mutex
	engine  *pricing.Engine
	factory PersistenceFactory
	stores  map[string]*Store
}

// NewManager creates a cart manager. A nil factory means carts live only in
// memory.
func NewManager(engine *pricing.Engine, factory PersistenceFactory) *Manager {
	return &Manager{
		engine:  engine,
		factory: factory,
		stores:  make(map[string]*Store),
	}
}

// ForKey returns the cart store for the given shopper key, creating and
// restoring it on first use.
func (m *Manager) ForKey(key string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[key]; ok {
		return s, nil
	}

	var persist Persistence
	if m.factory != nil {
		persist = m.factory(key)
	}
	s, err := NewStore(m.engine, persist)
	if err != nil {
		return nil, err
	}
	m.stores[key] = s
	return s, nil
}
