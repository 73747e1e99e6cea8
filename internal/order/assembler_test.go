package order_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/pricing"
)

func usAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:    "Avery Quinn",
		Phone:       "+1 555 010 2222",
		AddressLine: "12 Harbor St",
		City:        "Portland",
		Province:    "ME",
		CountryCode: "US",
	}
}

func testLines() []domain.CartLine {
	return []domain.CartLine{
		{
			ProductID: "tee",
			VariantID: "tee-red-m",
			Name:      "Logo Tee",
			UnitPrice: domain.MoneyFromCents(2500),
			Quantity:  2,
			ColorID:   "red",
			SizeID:    "m",
			SKU:       "TEE-RED-M",
		},
	}
}

func assembleInput(engine *pricing.Engine, t *testing.T) order.AssembleInput {
	t.Helper()
	summary, err := engine.ComputeSummary(testLines(), "US", decimal.Zero)
	require.NoError(t, err)

	return order.AssembleInput{
		UserID:        "user-1",
		Lines:         testLines(),
		Address:       usAddress(),
		ClientSummary: summary,
		Discount:      decimal.Zero,
		PaymentMethod: "card",
	}
}

func TestAssembler_FreezesCartIntoOrder(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	asm := order.NewAssembler(engine)

	req, err := asm.Assemble(assembleInput(engine, t))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "card", req.PaymentMethod)
	assert.True(t, req.Summary.Reconciles())

	require.Len(t, req.Items, 1)
	item := req.Items[0]
	assert.Equal(t, "Logo Tee", item.ProductName)
	assert.Equal(t, "red m", item.VariantName)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "50", item.TotalPrice.String())

	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{4}$`, req.OrderNumber)
}

func TestAssembler_EmptyCart(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	asm := order.NewAssembler(engine)

	in := assembleInput(engine, t)
	in.Lines = nil

	_, err := asm.Assemble(in)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestAssembler_InvalidAddress(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	asm := order.NewAssembler(engine)

	tests := []struct {
		name   string
		mutate func(*domain.ShippingAddress)
	}{
		{"missing name", func(a *domain.ShippingAddress) { a.FullName = "" }},
		{"missing phone", func(a *domain.ShippingAddress) { a.Phone = "" }},
		{"missing city", func(a *domain.ShippingAddress) { a.City = "" }},
		{"bad country code", func(a *domain.ShippingAddress) { a.CountryCode = "USA" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := assembleInput(engine, t)
			tt.mutate(&in.Address)

			_, err := asm.Assemble(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidAddress)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func TestAssembler_PriceMismatch(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	asm := order.NewAssembler(engine)

	in := assembleInput(engine, t)
	// Stale client page: totals from before a price increase.
	in.ClientSummary.Subtotal = domain.MoneyFromCents(4000)
	in.ClientSummary.Total = domain.MoneyFromCents(4320)

	_, err := asm.Assemble(in)
	assert.ErrorIs(t, err, domain.ErrPriceMismatch)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestAssembler_ToleratesMinorRoundingDrift(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultRegions(), "USD")
	asm := order.NewAssembler(engine)

	in := assembleInput(engine, t)
	in.ClientSummary.Tax = in.ClientSummary.Tax.Add(domain.MoneyFromCents(1))
	in.ClientSummary.Total = in.ClientSummary.Total.Add(domain.MoneyFromCents(1))

	_, err := asm.Assemble(in)
	assert.NoError(t, err)
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	n := order.NewOrderNumber(now)

	assert.True(t, strings.HasPrefix(n, "ORD-20260830-"))
	assert.Len(t, n, len("ORD-20260830-XXXX"))
}
