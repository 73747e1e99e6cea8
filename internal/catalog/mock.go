package catalog

import (
	"context"
	"sync"

	"github.com/tmarchant/vesper/internal/domain"
)

// MockCatalog is an in-memory catalog for tests and local development.
// Products can be mutated between calls to simulate catalog drift.
type MockCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product

	// GetProductFunc overrides GetProduct when set.
	GetProductFunc func(ctx context.Context, id string) (*domain.Product, error)

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockCatalog creates an empty mock catalog.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{products: make(map[string]domain.Product)}
}

// Put inserts or replaces a product.
func (m *MockCatalog) Put(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// Remove deletes a product, simulating removal from the catalog.
func (m *MockCatalog) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// GetProduct implements Catalog.
func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "GetProduct("+id+")")
	m.mu.Unlock()

	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := p
	return &copied, nil
}

// GetVariant implements Catalog by resolving against the stored product.
func (m *MockCatalog) GetVariant(ctx context.Context, productID, colorID, sizeID string) (*domain.Variant, error) {
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	v, err := ResolveVariant(p, colorID, sizeID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
