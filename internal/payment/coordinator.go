package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/events"
	"github.com/tmarchant/vesper/internal/order"
)

// Coordinator owns the money-touching edge of checkout. It opens provider
// orders, captures them, and reconciles the result onto the order record.
// Every step is safe to retry: the provider order ID is the idempotency key
// and a PAID order short-circuits before the provider is called again.
type Coordinator struct {
	provider Provider
	orders   order.Store
	pub      events.Publisher
	logger   *slog.Logger
}

// NewCoordinator creates the capture coordinator.
func NewCoordinator(provider Provider, orders order.Store, pub events.Publisher, logger *slog.Logger) *Coordinator {
	return &Coordinator{provider: provider, orders: orders, pub: pub, logger: logger}
}

// EnsureProviderOrder returns the order's provider order ID, opening one
// with the provider on first call. Crash-safe: if the process dies between
// provider call and store write, the provider-side idempotency key (the
// order number) makes the retry return the same provider order.
func (c *Coordinator) EnsureProviderOrder(ctx context.Context, o *domain.Order) (string, error) {
	if o.ProviderOrderID != "" {
		return o.ProviderOrderID, nil
	}

	po, err := c.provider.CreateProviderOrder(ctx, CreateParams{
		OrderNumber: o.OrderNumber,
		Amount:      o.Summary.Total,
		Currency:    o.Summary.Currency,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create provider order for %s: %w", o.OrderNumber, err)
	}

	if err := c.orders.SetProviderOrder(ctx, o.ID, po.ID); err != nil {
		return "", fmt.Errorf("failed to record provider order for %s: %w", o.OrderNumber, err)
	}
	o.ProviderOrderID = po.ID
	return po.ID, nil
}

// CaptureAndReconcile captures payment for the order and transitions it
// PENDING to PAID with the transaction details recorded.
//
//   - An order already PAID returns immediately without touching the
//     provider, so retries after a reconcile are free.
//   - A transient provider failure leaves the order PENDING; the caller
//     retries and the provider's idempotency guarantees a single charge.
//   - A decline transitions the order to FAILED and surfaces EPAYMENT.
func (c *Coordinator) CaptureAndReconcile(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if o.Status == domain.StatusPaid {
		return o, nil
	}
	if o.Status != domain.StatusPending {
		return nil, domain.Conflict("payment.CaptureAndReconcile",
			fmt.Sprintf("Order in status %s cannot be captured", o.Status))
	}
	if o.ProviderOrderID == "" {
		return nil, ErrNoProviderOrder
	}

	result, err := c.provider.Capture(ctx, o.ProviderOrderID)
	if err != nil {
		return nil, c.handleCaptureFailure(ctx, o, err)
	}

	if result.AlreadyCaptured {
		c.logger.Info("capture replayed by provider, reconciling",
			"order_id", o.ID,
			"provider_order_id", o.ProviderOrderID,
		)
	}

	paid, err := c.orders.MarkPaid(ctx, o.ID, order.PaymentRecord{
		ProviderTransactionID: result.TransactionID,
		Amount:                result.Amount,
		Currency:              result.Currency,
		PaidAt:                result.CapturedAt,
	})
	if err != nil {
		// Money moved but the record did not. The next retry hits the
		// AlreadyCaptured path and reconciles without recharging.
		return nil, fmt.Errorf("captured but failed to reconcile order %s: %w", o.ID, err)
	}

	c.publishStatusChange(ctx, paid, domain.StatusPending)
	return paid, nil
}

// handleCaptureFailure decides the order's fate from the failure class.
// Declines are final, so the order moves to FAILED; anything transient
// leaves it PENDING for retry.
func (c *Coordinator) handleCaptureFailure(ctx context.Context, o *domain.Order, captureErr error) error {
	if !domain.IsCode(captureErr, domain.EPAYMENT) {
		c.logger.Warn("capture failed transiently, order left pending",
			"order_id", o.ID,
			"error", captureErr,
		)
		return fmt.Errorf("capture failed for order %s: %w", o.ID, captureErr)
	}

	failed, err := c.orders.UpdateOrderStatus(ctx, o.ID, domain.StatusFailed)
	if err != nil {
		c.logger.Error("failed to mark declined order as failed",
			"order_id", o.ID,
			"error", err,
		)
		return fmt.Errorf("capture declined for order %s: %w", o.ID, captureErr)
	}

	c.publishStatusChange(ctx, failed, domain.StatusPending)
	return fmt.Errorf("capture declined for order %s: %w", o.ID, captureErr)
}

func (c *Coordinator) publishStatusChange(ctx context.Context, o *domain.Order, from domain.OrderStatus) {
	if c.pub == nil {
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
	if err := c.pub.PublishOrderStatusChanged(ctx, evt); err != nil {
		c.logger.Error("failed to publish order status event",
			"order_id", o.ID,
			"to", o.Status,
			"error", err,
		)
	}
}
