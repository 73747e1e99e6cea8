package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/events"
	"github.com/tmarchant/vesper/internal/telemetry"
)

// Lifecycle moves orders through the status state machine. Every mutation
// runs check-then-commit: the transition is validated against the current
// stored status before anything is written, and an event is published only
// after the store accepted the change.
type Lifecycle struct {
	store   Store
	pub     events.Publisher
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewLifecycle creates the lifecycle service.
func NewLifecycle(store Store, pub events.Publisher, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{store: store, pub: pub, logger: logger}
}

// WithMetrics records committed transitions on m. Optional.
func (l *Lifecycle) WithMetrics(m *telemetry.Metrics) *Lifecycle {
	l.metrics = m
	return l
}

// Transition moves the order to target if the state machine allows it from
// the order's current status. Illegal transitions, including any move out
// of a terminal status, fail with ECONFLICT and leave the order untouched.
func (l *Lifecycle) Transition(ctx context.Context, id string, target domain.OrderStatus) (*domain.Order, error) {
	current, err := l.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}

	if !domain.CanTransition(current.Status, target) {
		return nil, &domain.Error{
			Code:    domain.ECONFLICT,
			Message: fmt.Sprintf("Order cannot move from %s to %s", current.Status, target),
			Op:      "order.Transition",
			Err:     &domain.IllegalTransitionError{From: current.Status, To: target},
		}
	}

	updated, err := l.store.UpdateOrderStatus(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	if l.metrics != nil {
		l.metrics.OrderTransition(string(current.Status), string(updated.Status))
	}
	l.publish(ctx, updated, current.Status)
	return updated, nil
}

// MarkShipped transitions to SHIPPED and records fulfillment details. A
// tracking number and carrier are mandatory; notes are optional.
func (l *Lifecycle) MarkShipped(ctx context.Context, id, trackingNumber, carrier, notes string) (*domain.Order, error) {
	if trackingNumber == "" || carrier == "" {
		return nil, &domain.Error{
			Code:    domain.EINVALID,
			Message: "Shipping an order requires a tracking number and carrier",
			Op:      "order.MarkShipped",
		}
	}

	current, err := l.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	if !domain.CanTransition(current.Status, domain.StatusShipped) {
		return nil, &domain.Error{
			Code:    domain.ECONFLICT,
			Message: fmt.Sprintf("Order cannot move from %s to %s", current.Status, domain.StatusShipped),
			Op:      "order.MarkShipped",
			Err:     &domain.IllegalTransitionError{From: current.Status, To: domain.StatusShipped},
		}
	}

	if _, err := l.store.SetTracking(ctx, id, trackingNumber, carrier, notes); err != nil {
		return nil, fmt.Errorf("failed to record tracking for order %s: %w", id, err)
	}
	return l.Transition(ctx, id, domain.StatusShipped)
}

// publish emits the status-change event. Failures are logged and swallowed;
// the store already committed and consumers can reconcile from it.
func (l *Lifecycle) publish(ctx context.Context, o *domain.Order, from domain.OrderStatus) {
	if l.pub == nil {
		return
	}

	evt := events.OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		From:        from,
		To:          o.Status,
		OccurredAt:  time.Now(),
	}
	if err := l.pub.PublishOrderStatusChanged(ctx, evt); err != nil {
		l.logger.Error("failed to publish order status event",
			"order_id", o.ID,
			"from", from,
			"to", o.Status,
			"error", err,
		)
	}
}
