package checkout_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/events"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/payment"
	"github.com/tmarchant/vesper/internal/pricing"
)

type checkoutFixture struct {
	catalog  *catalog.MockCatalog
	engine   *pricing.Engine
	cart     *cart.Store
	orders   *order.MemoryStore
	provider *payment.MockProvider
	sessions *checkout.MemorySessionStore
	svc      *checkout.Service
}

func newCheckoutFixture(t *testing.T, policy checkout.Policy) *checkoutFixture {
	t.Helper()

	cat := catalog.NewMockCatalog()
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")

	cartStore, err := cart.NewStore(engine, nil)
	require.NoError(t, err)

	orders := order.NewMemoryStore()
	provider := payment.NewMockProvider()
	pub := events.NewMockPublisher()
	sessions := checkout.NewMemorySessionStore()
	logger := slog.Default()

	svc := checkout.NewService(checkout.Deps{
		Validator:   cart.NewValidator(cat),
		Assembler:   order.NewAssembler(engine),
		Orders:      orders,
		Lifecycle:   order.NewLifecycle(orders, pub, logger),
		Coordinator: payment.NewCoordinator(provider, orders, pub, logger),
		Sessions:    sessions,
		Logger:      logger,
		Policy:      policy,
	})

	return &checkoutFixture{
		catalog:  cat,
		engine:   engine,
		cart:     cartStore,
		orders:   orders,
		provider: provider,
		sessions: sessions,
		svc:      svc,
	}
}

func (f *checkoutFixture) stockTee(t *testing.T, priceCents int64, stock int) domain.Product {
	t.Helper()
	p := domain.Product{
		ID:    "tee",
		Name:  "Logo Tee",
		Price: domain.MoneyFromCents(priceCents),
		Variants: []domain.Variant{
			{ID: "tee-red-m", ColorID: "red", SizeID: "m", Price: domain.MoneyFromCents(priceCents), Stock: stock, SKU: "TEE-RED-M"},
		},
	}
	f.catalog.Put(p)
	return p
}

func (f *checkoutFixture) addTee(t *testing.T, priceCents int64, qty int) {
	t.Helper()
	require.NoError(t, f.cart.Add(domain.CartLine{
		ProductID: "tee",
		VariantID: "tee-red-m",
		Name:      "Logo Tee",
		UnitPrice: domain.MoneyFromCents(priceCents),
		Quantity:  qty,
		ColorID:   "red",
		SizeID:    "m",
		SKU:       "TEE-RED-M",
	}))
}

func (f *checkoutFixture) confirmInput(t *testing.T, ack bool) checkout.ConfirmCartInput {
	t.Helper()
	summary, err := f.cart.Totals("US", decimal.Zero)
	require.NoError(t, err)
	return checkout.ConfirmCartInput{
		Address: domain.ShippingAddress{
			FullName:    "Avery Quinn",
			Phone:       "+1 555 010 2222",
			AddressLine: "12 Harbor St",
			City:        "Portland",
			Province:    "ME",
			CountryCode: "US",
		},
		ClientSummary:     summary,
		Discount:          decimal.Zero,
		PaymentMethod:     "card",
		AcknowledgeIssues: ack,
	}
}

func TestService_StartOpensCartStep(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})

	session, err := f.svc.Start(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, checkout.StepCart, session.Step)
	assert.Empty(t, session.OrderID)
}

func TestService_ResumeUnknownSession(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})

	_, err := f.svc.Resume(context.Background(), "nope")
	assert.ErrorIs(t, err, checkout.ErrSessionNotFound)
}

func TestService_ResumeExpiredSession(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	ctx := context.Background()

	stale := checkout.Session{
		ID:        "stale",
		UserID:    "user-1",
		Step:      checkout.StepPayment,
		CreatedAt: time.Now().Add(-25 * time.Hour),
	}
	require.NoError(t, f.sessions.Save(ctx, stale))

	_, err := f.svc.Resume(ctx, "stale")
	assert.ErrorIs(t, err, checkout.ErrSessionExpired)

	// Expired sessions are removed on resume.
	_, err = f.sessions.Get(ctx, "stale")
	assert.ErrorIs(t, err, checkout.ErrSessionNotFound)
}

func TestService_SessionJustUnderTTLSurvives(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	ctx := context.Background()

	fresh := checkout.Session{
		ID:        "fresh",
		Step:      checkout.StepPayment,
		CreatedAt: time.Now().Add(-23 * time.Hour),
	}
	require.NoError(t, f.sessions.Save(ctx, fresh))

	got, err := f.svc.Resume(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, got.Step)
}

func TestService_ConfirmCartCreatesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	session, validation, err := f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)

	assert.True(t, validation.IsValid)
	assert.Equal(t, checkout.StepPayment, session.Step)
	require.NotEmpty(t, session.OrderID)
	assert.True(t, session.Summary.Reconciles())

	o, err := f.orders.GetOrder(ctx, session.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "user-1", o.UserID)

	// Cart is untouched until payment settles.
	assert.False(t, f.cart.IsEmpty())
}

func TestService_ConfirmCartEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestService_ConfirmCartRepairsAndBlocksUntilAcknowledged(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.addTee(t, 2500, 2)
	// Price rose after the line was added.
	f.stockTee(t, 2900, 10)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, validation, err := f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	assert.ErrorIs(t, err, checkout.ErrCartChanged)
	require.Len(t, validation.Issues, 1)
	assert.Equal(t, domain.ReasonPriceChanged, validation.Issues[0].Reason)

	// The repaired price is already installed in the cart.
	assert.Equal(t, "29", f.cart.Lines()[0].UnitPrice.String())

	// Acknowledged retry, with totals recomputed from the repaired cart.
	session, validation, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, true))
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, session.Step)
	assert.Equal(t, "58", session.Summary.Subtotal.String())
}

func TestService_BlockOnWarningsIgnoresAcknowledgment(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{BlockOnWarnings: true})
	f.addTee(t, 2500, 2)
	f.stockTee(t, 2900, 10)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, true))
	assert.ErrorIs(t, err, checkout.ErrCartChanged)
}

func TestService_ConfirmCartValidationEmptiesCart(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.addTee(t, 2500, 2)
	// Product removed from the catalog entirely.
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	_, validation, err := f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.True(t, validation.Empty())
	assert.True(t, f.cart.IsEmpty())
}

func TestService_FullCheckoutFlow(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)

	providerOrderID, err := f.svc.PreparePayment(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, providerOrderID)

	// Calling again returns the same provider order.
	again, err := f.svc.PreparePayment(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, providerOrderID, again)

	session, paid, err := f.svc.Capture(ctx, session.ID, f.cart)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepCompleted, session.Step)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.True(t, f.cart.IsEmpty())
}

func TestService_CaptureRetryAfterSuccessReplaysPaidOrder(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)
	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)
	_, err = f.svc.PreparePayment(ctx, session.ID)
	require.NoError(t, err)

	_, paid, err := f.svc.Capture(ctx, session.ID, f.cart)
	require.NoError(t, err)

	// The shopper double-clicks, or the first response is lost in transit.
	// The retry completes against the already-paid order without a second
	// provider charge.
	session, replayed, err := f.svc.Capture(ctx, session.ID, f.cart)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepCompleted, session.Step)
	assert.Equal(t, paid.ID, replayed.ID)
	assert.Equal(t, domain.StatusPaid, replayed.Status)
	assert.Equal(t, 1, f.provider.CaptureCount())
}

func TestService_CaptureTransientFailureKeepsSessionAndCart(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)
	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)
	_, err = f.svc.PreparePayment(ctx, session.ID)
	require.NoError(t, err)

	f.provider.FailCapturesWith = payment.ErrProviderUnavailable
	_, _, err = f.svc.Capture(ctx, session.ID, f.cart)
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))

	resumed, err := f.svc.Resume(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, resumed.Step)
	assert.False(t, f.cart.IsEmpty())

	// Provider recovers; the same session completes.
	f.provider.FailCapturesWith = nil
	_, paid, err := f.svc.Capture(ctx, session.ID, f.cart)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
}

func TestService_ResumeAfterRestart(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)
	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)

	// A fresh service over the same session store, as after a process
	// restart.
	restarted := checkout.NewService(checkout.Deps{
		Sessions: f.sessions,
		Logger:   slog.Default(),
	})

	resumed, err := restarted.Resume(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, resumed.Step)
	assert.Equal(t, session.OrderID, resumed.OrderID)
	require.Len(t, resumed.Items, 1)
}

func TestService_BackCancelsPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)
	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)
	orderID := session.OrderID

	session, err = f.svc.Back(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StepCart, session.Step)
	assert.Empty(t, session.OrderID)

	o, err := f.orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	// The reservation taken at order creation is handed back.
	require.Len(t, f.orders.Released, 1)
	assert.Equal(t, 2, f.orders.Released[0].Quantity)
}

func TestService_NoBackAfterPayment(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	f.stockTee(t, 2500, 10)
	f.addTee(t, 2500, 2)
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)
	session, _, err = f.svc.ConfirmCart(ctx, session.ID, f.cart, f.confirmInput(t, false))
	require.NoError(t, err)

	// Payment settles out-of-band while the session is still at the
	// payment step.
	_, err = f.orders.MarkPaid(ctx, session.OrderID, order.PaymentRecord{
		ProviderTransactionID: "tx_1",
		Amount:                session.Summary.Total,
		Currency:              "USD",
		PaidAt:                time.Now(),
	})
	require.NoError(t, err)

	_, err = f.svc.Back(ctx, session.ID)
	assert.ErrorIs(t, err, checkout.ErrPaymentSettled)
}

func TestService_StepGuards(t *testing.T) {
	f := newCheckoutFixture(t, checkout.Policy{})
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "user-1")
	require.NoError(t, err)

	// Payment operations require the payment step.
	_, err = f.svc.PreparePayment(ctx, session.ID)
	assert.ErrorIs(t, err, checkout.ErrWrongStep)

	_, _, err = f.svc.Capture(ctx, session.ID, f.cart)
	assert.ErrorIs(t, err, checkout.ErrWrongStep)

	_, err = f.svc.Back(ctx, session.ID)
	assert.ErrorIs(t, err, checkout.ErrWrongStep)
}
