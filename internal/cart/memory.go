package cart

import (
	"sync"

	"github.com/tmarchant/vesper/internal/domain"
)

// MemoryPersistence keeps cart state in memory. It backs tests and local
// development, and simulates a crashed session by constructing a new Store
// over the same persistence value.
type MemoryPersistence struct {
	mu    sync.Mutex
	lines []domain.CartLine
	saved bool

	// SaveFunc overrides Save when set, letting tests inject failures.
	SaveFunc func(lines []domain.CartLine) error

	// SaveCount tracks how many times Save ran.
	SaveCount int
}

// NewMemoryPersistence creates empty in-memory persistence.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

// Save implements Persistence.
func (m *MemoryPersistence) Save(lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCount++
	if m.SaveFunc != nil {
		return m.SaveFunc(lines)
	}

	m.lines = append([]domain.CartLine(nil), lines...)
	m.saved = true
	return nil
}

// Load implements Persistence.
func (m *MemoryPersistence) Load() ([]domain.CartLine, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.saved {
		return nil, false, nil
	}
	return append([]domain.CartLine(nil), m.lines...), true, nil
}
