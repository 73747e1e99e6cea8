// Package cart holds the per-session shopping cart: a mutable line-item
// store with injected persistence, and the validator that reconciles cart
// contents against live catalog truth immediately before checkout.
package cart

import (
	"fmt"
	"sync"

	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/pricing"
)

// Persistence saves and restores cart state between visits. The store calls
// Save after every mutation; storage sync is an injected capability, not an
// implicit global effect.
type Persistence interface {
	Save(lines []domain.CartLine) error
	Load() ([]domain.CartLine, bool, error)
}

// Observer is notified after each successful cart mutation.
type Observer func(lines []domain.CartLine)

// Store owns the cart lines for one shopping session. No two lines ever
// share the same (productID, variantID).
type Store struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	engine    *pricing.Engine
	persist   Persistence
	observers []Observer
}

// NewStore creates a cart store, restoring any persisted lines.
func NewStore(engine *pricing.Engine, persist Persistence) (*Store, error) {
	s := &Store{engine: engine, persist: persist}

	if persist != nil {
		lines, ok, err := persist.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted cart: %w", err)
		}
		if ok {
			s.lines = lines
		}
	}

	return s, nil
}

// Subscribe registers an observer called after each mutation.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Add merges the line into an existing entry with the same
// (productID, variantID), summing quantities, or appends a new line.
// A line carrying a stock snapshot (AvailableStock > 0) is rejected when the
// resulting quantity exceeds it; lines without a snapshot are accepted and
// left to the checkout validator to clamp.
func (s *Store) Add(line domain.CartLine) error {
	if line.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.lines {
		if s.lines[i].ProductID == line.ProductID && s.lines[i].VariantID == line.VariantID {
			total := s.lines[i].Quantity + line.Quantity
			if line.AvailableStock > 0 && total > line.AvailableStock {
				return domain.NewQuantityExceedsStock(line.Name, total, line.AvailableStock)
			}
			s.lines[i].Quantity = total
			if line.AvailableStock > 0 {
				s.lines[i].AvailableStock = line.AvailableStock
			}
			merged = true
			break
		}
	}
	if !merged {
		if line.AvailableStock > 0 && line.Quantity > line.AvailableStock {
			return domain.NewQuantityExceedsStock(line.Name, line.Quantity, line.AvailableStock)
		}
		s.lines = append(s.lines, line)
	}

	return s.afterMutation()
}

// UpdateQuantity sets the quantity of the line referencing variantID.
// A quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(variantID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(variantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].VariantID == variantID {
			if avail := s.lines[i].AvailableStock; avail > 0 && quantity > avail {
				return domain.NewQuantityExceedsStock(s.lines[i].Name, quantity, avail)
			}
			s.lines[i].Quantity = quantity
			return s.afterMutation()
		}
	}
	return domain.ErrCartLineNotFound
}

// Remove deletes the line referencing variantID. Removing an absent line is
// not an error.
func (s *Store) Remove(variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].VariantID == variantID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return s.afterMutation()
		}
	}
	return nil
}

// Clear removes all lines.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	return s.afterMutation()
}

// Replace swaps the full line set, used by the validator to install
// repaired lines.
func (s *Store) Replace(lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append([]domain.CartLine(nil), lines...)
	return s.afterMutation()
}

// Lines returns a copy of the current cart lines.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.lines...)
}

// IsEmpty reports whether the cart holds no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Totals computes the price summary for the given destination and discount.
func (s *Store) Totals(countryCode string, discount domain.Money) (domain.PriceSummary, error) {
	return s.engine.ComputeSummary(s.Lines(), countryCode, discount)
}

// afterMutation persists and notifies observers. Callers hold s.mu.
func (s *Store) afterMutation() error {
	snapshot := append([]domain.CartLine(nil), s.lines...)

	if s.persist != nil {
		if err := s.persist.Save(snapshot); err != nil {
			return fmt.Errorf("failed to persist cart: %w", err)
		}
	}

	for _, fn := range s.observers {
		fn(snapshot)
	}
	return nil
}
