// Package payment abstracts the external payment provider and coordinates
// capture with order reconciliation. Capture is idempotent: retrying after a
// transient failure can never charge the shopper twice.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarchant/vesper/internal/domain"
)

// CreateParams describes the provider-side order to open before capture.
type CreateParams struct {
	OrderNumber string
	Amount      domain.Money
	Currency    string
}

// ProviderOrder is the provider's handle for an authorized, uncaptured
// payment. Its ID doubles as the capture idempotency key.
type ProviderOrder struct {
	ID string
}

// CaptureResult reports a settled capture. AlreadyCaptured is set when the
// provider recognized the idempotency key and returned the original
// transaction instead of charging again.
type CaptureResult struct {
	TransactionID   string
	Amount          domain.Money
	Currency        string
	CapturedAt      time.Time
	AlreadyCaptured bool
}

// Provider is the payment gateway. Implementations translate their own
// error taxonomy into ErrProviderDeclined and ErrProviderUnavailable so the
// coordinator can decide between failing the order and leaving it retryable.
type Provider interface {
	CreateProviderOrder(ctx context.Context, params CreateParams) (ProviderOrder, error)
	Capture(ctx context.Context, providerOrderID string) (CaptureResult, error)
}

// MinorUnits converts a major-unit amount to integer minor units, e.g.
// 19.99 USD to 1999 cents. Providers bill in minor units.
func MinorUnits(amount domain.Money) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
