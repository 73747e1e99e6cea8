package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmarchant/vesper/internal/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order

	// CreateOrderFunc overrides CreateOrder when set.
	CreateOrderFunc func(ctx context.Context, req domain.OrderCreationRequest) (*domain.Order, error)

	// MarkPaidFunc overrides MarkPaid when set.
	MarkPaidFunc func(ctx context.Context, id string, rec PaymentRecord) (*domain.Order, error)

	// Released collects the items whose reserved stock was handed back by a
	// cancellation or failure, mirroring what the Postgres store restores.
	Released []domain.OrderItem

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]domain.Order)}
}

func (m *MemoryStore) log(call string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, call)
	m.mu.Unlock()
}

// CreateOrder implements Store.
func (m *MemoryStore) CreateOrder(ctx context.Context, req domain.OrderCreationRequest) (*domain.Order, error) {
	m.log("CreateOrder")
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}

	now := time.Now()
	o := domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     req.OrderNumber,
		UserID:          req.UserID,
		Items:           append([]domain.OrderItem(nil), req.Items...),
		Summary:         req.Summary,
		ShippingAddress: req.ShippingAddress,
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	copied := o
	return &copied, nil
}

// GetOrder implements Store.
func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.log("GetOrder(" + id + ")")

	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := o
	return &copied, nil
}

// GetOrderByNumber implements Store.
func (m *MemoryStore) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	m.log("GetOrderByNumber(" + number + ")")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OrderNumber == number {
			copied := o
			return &copied, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

// ListOrdersByUser implements Store. Orders come back newest first.
func (m *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	m.log("ListOrdersByUser(" + userID + ")")

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateOrderStatus implements Store.
func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	m.log("UpdateOrderStatus(" + id + "," + string(status) + ")")

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if domain.ReleasesStock(o.Status, status) {
		m.Released = append(m.Released, o.Items...)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	copied := o
	return &copied, nil
}

// SetProviderOrder implements Store.
func (m *MemoryStore) SetProviderOrder(ctx context.Context, id, providerOrderID string) error {
	m.log("SetProviderOrder(" + id + ")")

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.ProviderOrderID = providerOrderID
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return nil
}

// MarkPaid implements Store.
func (m *MemoryStore) MarkPaid(ctx context.Context, id string, rec PaymentRecord) (*domain.Order, error) {
	m.log("MarkPaid(" + id + ")")
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, id, rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	paidAt := rec.PaidAt
	o.Status = domain.StatusPaid
	o.ProviderTransactionID = rec.ProviderTransactionID
	o.PaidAmount = rec.Amount
	o.PaidCurrency = rec.Currency
	o.PaidAt = &paidAt
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	copied := o
	return &copied, nil
}

// SetTracking implements Store.
func (m *MemoryStore) SetTracking(ctx context.Context, id, trackingNumber, carrier, notes string) (*domain.Order, error) {
	m.log("SetTracking(" + id + ")")

	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.TrackingNumber = trackingNumber
	o.Carrier = carrier
	if notes != "" {
		o.Notes = notes
	}
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	copied := o
	return &copied, nil
}
