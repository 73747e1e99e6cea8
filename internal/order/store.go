// Package order turns validated carts into immutable orders and drives them
// through the lifecycle state machine.
package order

import (
	"context"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
)

// PaymentRecord carries the captured-payment facts written onto an order
// when it is reconciled to PAID.
type PaymentRecord struct {
	ProviderTransactionID string
	Amount                domain.Money
	Currency              string
	PaidAt                time.Time
}

// Store persists orders. Implementations must apply each mutation
// atomically; the lifecycle service performs transition checks before
// calling UpdateOrderStatus, so the store only enforces existence.
type Store interface {
	CreateOrder(ctx context.Context, req domain.OrderCreationRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)

	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)

	// SetProviderOrder records the provider-side order reference created
	// during checkout, before any capture happens.
	SetProviderOrder(ctx context.Context, id, providerOrderID string) error

	// MarkPaid transitions the order to PAID and writes the payment record
	// in one step.
	MarkPaid(ctx context.Context, id string, rec PaymentRecord) (*domain.Order, error)

	// SetTracking records fulfillment details alongside the SHIPPED status.
	SetTracking(ctx context.Context, id, trackingNumber, carrier, notes string) (*domain.Order, error)
}
