// Package events publishes order lifecycle notifications so fulfillment and
// notification services can react without polling the order store.
package events

import (
	"context"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
)

// OrderStatusChanged is emitted after every committed lifecycle transition.
type OrderStatusChanged struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	UserID      string             `json:"userId"`
	From        domain.OrderStatus `json:"from"`
	To          domain.OrderStatus `json:"to"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// Publisher emits lifecycle events. Publishing is best-effort from the
// caller's point of view: a failed publish is logged, never rolled back,
// because the store is the source of truth.
type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, evt OrderStatusChanged) error
	Close()
}
