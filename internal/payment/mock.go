package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
)

// MockProvider is an in-memory Provider for tests and local development. It
// honors capture idempotency the way a real gateway does: capturing the same
// provider order twice returns the original transaction.
type MockProvider struct {
	mu       sync.Mutex
	orders   map[string]CreateParams
	captures map[string]CaptureResult
	seq      int

	// CreateFunc overrides CreateProviderOrder when set.
	CreateFunc func(ctx context.Context, params CreateParams) (ProviderOrder, error)

	// CaptureFunc overrides Capture when set.
	CaptureFunc func(ctx context.Context, providerOrderID string) (CaptureResult, error)

	// FailCapturesWith makes the next captures fail with the given error
	// until cleared. Used to simulate outages and declines.
	FailCapturesWith error

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		orders:   make(map[string]CreateParams),
		captures: make(map[string]CaptureResult),
	}
}

// CreateProviderOrder implements Provider.
func (m *MockProvider) CreateProviderOrder(ctx context.Context, params CreateParams) (ProviderOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "CreateProviderOrder("+params.OrderNumber+")")

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	if !params.Amount.IsPositive() {
		return ProviderOrder{}, ErrInvalidAmount
	}

	m.seq++
	id := fmt.Sprintf("po_%04d", m.seq)
	m.orders[id] = params
	return ProviderOrder{ID: id}, nil
}

// Capture implements Provider.
func (m *MockProvider) Capture(ctx context.Context, providerOrderID string) (CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, "Capture("+providerOrderID+")")

	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, providerOrderID)
	}

	// Idempotency: a settled capture replays its original result.
	if prior, ok := m.captures[providerOrderID]; ok {
		prior.AlreadyCaptured = true
		return prior, nil
	}

	if m.FailCapturesWith != nil {
		return CaptureResult{}, m.FailCapturesWith
	}

	params, ok := m.orders[providerOrderID]
	if !ok {
		return CaptureResult{}, &domain.Error{
			Code:    domain.ENOTFOUND,
			Message: "Unknown provider order",
			Op:      "payment.mock",
		}
	}

	result := CaptureResult{
		TransactionID: "tx_" + providerOrderID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		CapturedAt:    time.Now(),
	}
	m.captures[providerOrderID] = result
	return result, nil
}

// CaptureCount returns how many capture attempts were made.
func (m *MockProvider) CaptureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.CallLog {
		if len(call) > 8 && call[:8] == "Capture(" {
			n++
		}
	}
	return n
}
