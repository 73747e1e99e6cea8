package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/events"
	"github.com/tmarchant/vesper/internal/handler"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/payment"
	"github.com/tmarchant/vesper/internal/pricing"
	"github.com/tmarchant/vesper/internal/router"
)

type apiFixture struct {
	catalog *catalog.MockCatalog
	router  *router.Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cat := catalog.NewMockCatalog()
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	carts := cart.NewManager(engine, nil)
	validator := cart.NewValidator(cat)
	orders := order.NewMemoryStore()
	pub := events.NewMockPublisher()
	logger := slog.Default()
	lifecycle := order.NewLifecycle(orders, pub, logger)

	svc := checkout.NewService(checkout.Deps{
		Validator:   validator,
		Assembler:   order.NewAssembler(engine),
		Orders:      orders,
		Lifecycle:   lifecycle,
		Coordinator: payment.NewCoordinator(payment.NewMockProvider(), orders, pub, logger),
		Sessions:    checkout.NewMemorySessionStore(),
		Logger:      logger,
	})

	r := router.New()
	handler.New(carts, cat, validator, svc, orders, lifecycle, logger).Routes(r)

	return &apiFixture{catalog: cat, router: r}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User-ID", "shopper-1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (f *apiFixture) putTee(priceCents int64, stock int) {
	f.catalog.Put(domain.Product{
		ID:    "tee",
		Name:  "Logo Tee",
		Price: domain.MoneyFromCents(priceCents),
		Variants: []domain.Variant{
			{ID: "tee-red-m", ColorID: "red", SizeID: "m", Price: domain.MoneyFromCents(priceCents), Stock: stock, SKU: "TEE-RED-M"},
		},
	})
}

// Every amount on the wire is a fixed two-decimal string, never a float.
func TestAPI_CartMoneyRendersTwoDecimals(t *testing.T) {
	f := newAPIFixture(t)
	f.putTee(2550, 10)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"productId": "tee",
		"colorId":   "red",
		"sizeId":    "m",
		"quantity":  2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, "25.50", line["unitPrice"])
	assert.Equal(t, "51.00", line["lineTotal"])

	summary := body["summary"].(map[string]any)
	assert.Equal(t, "51.00", summary["subtotal"])
	assert.Equal(t, "0.00", summary["shippingCost"])
	assert.Equal(t, "4.08", summary["tax"])
	assert.Equal(t, "0.00", summary["discount"])
	assert.Equal(t, "55.08", summary["total"])
	assert.Equal(t, "USD", summary["currency"])
}

func TestAPI_ConfirmCartConflictCarriesValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.putTee(2500, 10)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"productId": "tee",
		"colorId":   "red",
		"sizeId":    "m",
		"quantity":  2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	staleSummary := decodeBody(t, rec)["summary"]

	rec = f.do(t, http.MethodPost, "/checkout/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decodeBody(t, rec)["id"].(string)

	// Price rises between add-to-cart and checkout.
	f.putTee(2900, 10)

	rec = f.do(t, http.MethodPost, "/checkout/start", map[string]any{
		"sessionId": sessionID,
		"address": map[string]any{
			"fullName":    "Avery Quinn",
			"phone":       "+1 555 010 2222",
			"addressLine": "12 Harbor St",
			"city":        "Portland",
			"province":    "ME",
			"countryCode": "US",
		},
		"summary":       staleSummary,
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "conflict", body["code"])

	validation := body["validation"].(map[string]any)
	assert.Equal(t, false, validation["isValid"])
	issues := validation["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "price_changed", issues[0].(map[string]any)["reason"])

	// The repaired cart rides along so the storefront can show the delta.
	items := validation["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "29.00", items[0].(map[string]any)["unitPrice"])
}

func TestAPI_ConfirmCartRejectsMalformedAmounts(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/checkout/start", map[string]any{
		"sessionId": "s1",
		"summary":   map[string]any{"subtotal": "not-money"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "invalid", body["code"])
	assert.Equal(t, "Validation failed", body["message"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "is not a valid amount", fields["summary.subtotal"])
}

func TestAPI_AddCartItemRejectsQuantityAboveStock(t *testing.T) {
	f := newAPIFixture(t)
	f.putTee(2500, 3)

	rec := f.do(t, http.MethodPost, "/cart/items", map[string]any{
		"productId": "tee",
		"colorId":   "red",
		"sizeId":    "m",
		"quantity":  5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "invalid", body["code"])
	assert.Equal(t, "Only 3 of Logo Tee available", body["message"])
}
