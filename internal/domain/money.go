package domain

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount in a currency's major unit.
// All monetary arithmetic goes through decimal.Decimal; binary floats are
// never used for prices, so summaries reconcile exactly to 2 decimals.
type Money = decimal.Decimal

// MoneyFromString parses a decimal amount like "19.99".
func MoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MoneyFromCents builds an amount from integer minor units.
func MoneyFromCents(cents int64) Money {
	return decimal.New(cents, -2)
}

// RoundMinor rounds to the currency's minor unit (2 decimals), half up.
func RoundMinor(m Money) Money {
	return m.Round(2)
}

// PriceSummary is the complete monetary breakdown of a cart or order.
// Invariant: Total = Subtotal - Discount + ShippingCost + Tax, exact to
// 2 decimals, with Discount clamped so the total never goes negative.
type PriceSummary struct {
	Subtotal     Money
	ShippingCost Money
	Tax          Money
	Discount     Money
	Total        Money
	Currency     string
}

// Reconciles reports whether the summary satisfies the total identity.
func (s PriceSummary) Reconciles() bool {
	want := s.Subtotal.Sub(s.Discount).Add(s.ShippingCost).Add(s.Tax)
	return s.Total.Equal(want)
}

// EqualWithin reports whether two summaries agree field by field within
// the given tolerance. Used to compare a client-supplied summary against
// the authoritative server-side computation.
func (s PriceSummary) EqualWithin(other PriceSummary, tolerance Money) bool {
	if s.Currency != other.Currency {
		return false
	}
	within := func(a, b Money) bool {
		return a.Sub(b).Abs().LessThanOrEqual(tolerance)
	}
	return within(s.Subtotal, other.Subtotal) &&
		within(s.ShippingCost, other.ShippingCost) &&
		within(s.Tax, other.Tax) &&
		within(s.Discount, other.Discount) &&
		within(s.Total, other.Total)
}

// MinorUnitTolerance is one cent, the rounding tolerance for summary
// agreement checks.
var MinorUnitTolerance = decimal.New(1, -2)
