package events

import (
	"context"
	"sync"
)

// MockPublisher records published events for test assertions.
type MockPublisher struct {
	mu        sync.Mutex
	Published []OrderStatusChanged

	// PublishFunc overrides PublishOrderStatusChanged when set.
	PublishFunc func(ctx context.Context, evt OrderStatusChanged) error
}

// NewMockPublisher creates an empty mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishOrderStatusChanged implements Publisher.
func (m *MockPublisher) PublishOrderStatusChanged(ctx context.Context, evt OrderStatusChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, evt)
	}
	m.Published = append(m.Published, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []OrderStatusChanged {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OrderStatusChanged(nil), m.Published...)
}

// Close implements Publisher.
func (m *MockPublisher) Close() {}
