package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/tmarchant/vesper/internal/domain"
)

// StripeProvider implements Provider with manual-capture PaymentIntents:
// checkout opens the intent, and the coordinator captures it once the order
// is confirmed. Stripe deduplicates on the idempotency keys we derive from
// the order number and intent ID.
type StripeProvider struct{}

// NewStripeProvider configures the Stripe client with the secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

// CreateProviderOrder implements Provider by opening a manual-capture
// PaymentIntent for the order total.
func (s *StripeProvider) CreateProviderOrder(ctx context.Context, p CreateParams) (ProviderOrder, error) {
	if !p.Amount.IsPositive() {
		return ProviderOrder{}, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(MinorUnits(p.Amount)),
		Currency:      stripe.String(strings.ToLower(p.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("create-" + p.OrderNumber)
	params.AddMetadata("order_number", p.OrderNumber)

	pi, err := paymentintent.New(params)
	if err != nil {
		return ProviderOrder{}, translateStripeError(err)
	}
	return ProviderOrder{ID: pi.ID}, nil
}

// Capture implements Provider. Capturing an intent Stripe already settled
// is reported as AlreadyCaptured rather than an error.
func (s *StripeProvider) Capture(ctx context.Context, providerOrderID string) (CaptureResult, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("capture-" + providerOrderID)

	pi, err := paymentintent.Capture(providerOrderID, params)
	if err != nil {
		if settled, ok := s.alreadyCaptured(ctx, providerOrderID, err); ok {
			return settled, nil
		}
		return CaptureResult{}, translateStripeError(err)
	}

	return captureResult(pi, false), nil
}

// alreadyCaptured checks whether a capture failure was Stripe telling us the
// intent is already settled, which we treat as a duplicate capture.
func (s *StripeProvider) alreadyCaptured(ctx context.Context, providerOrderID string, err error) (CaptureResult, bool) {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) || sErr.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
		return CaptureResult{}, false
	}

	getParams := &stripe.PaymentIntentParams{}
	getParams.Context = ctx
	pi, getErr := paymentintent.Get(providerOrderID, getParams)
	if getErr != nil || pi.Status != stripe.PaymentIntentStatusSucceeded {
		return CaptureResult{}, false
	}
	return captureResult(pi, true), true
}

func captureResult(pi *stripe.PaymentIntent, duplicate bool) CaptureResult {
	txID := pi.ID
	if pi.LatestCharge != nil {
		txID = pi.LatestCharge.ID
	}
	return CaptureResult{
		TransactionID:   txID,
		Amount:          domain.MoneyFromCents(pi.AmountReceived),
		Currency:        strings.ToUpper(string(pi.Currency)),
		CapturedAt:      time.Now(),
		AlreadyCaptured: duplicate,
	}
}

// translateStripeError folds Stripe's error taxonomy into ours: card errors
// are declines, everything that smells like infrastructure is retryable.
func translateStripeError(err error) error {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return fmt.Errorf("stripe request failed: %w", domain.WrapError(err, domain.EUNAVAILABLE, "payment.stripe", "Payment provider request failed"))
	}

	switch {
	case sErr.Type == stripe.ErrorTypeCard:
		return domain.WrapError(err, domain.EPAYMENT, "payment.stripe", "Payment was declined by the provider")
	case sErr.Type == stripe.ErrorTypeAPI, sErr.HTTPStatusCode >= 500, sErr.Code == stripe.ErrorCodeRateLimit:
		return domain.WrapError(err, domain.EUNAVAILABLE, "payment.stripe", "Payment provider is temporarily unavailable, please retry")
	default:
		return domain.WrapError(err, domain.EPAYMENT, "payment.stripe", "Payment failed")
	}
}
