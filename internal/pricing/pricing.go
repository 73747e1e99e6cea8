// Package pricing computes cart and order totals: per-country shipping with
// free-shipping thresholds, percentage tax rounded to the currency minor
// unit, and the reconciling price summary. All arithmetic is decimal-exact.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tmarchant/vesper/internal/domain"
)

// Region holds the shipping and tax parameters for one destination country.
type Region struct {
	CountryCode string

	// BaseShippingCost is the flat shipping cost before any threshold.
	// A zero base cost means shipping is always free for the region.
	BaseShippingCost domain.Money

	// FreeShippingThreshold waives shipping once the subtotal reaches it.
	// Nil means the region has no threshold.
	FreeShippingThreshold *domain.Money

	// TaxRate is the fractional sales tax rate, e.g. 0.08 for 8%.
	TaxRate decimal.Decimal
}

// ShippingQuote is the computed shipping cost for a destination.
type ShippingQuote struct {
	Cost   domain.Money
	IsFree bool
}

// Engine prices carts against a fixed region table.
type Engine struct {
	regions  map[string]Region
	currency string
}

// NewEngine creates a pricing engine for the given regions and currency.
func NewEngine(regions []Region, currency string) *Engine {
	byCode := make(map[string]Region, len(regions))
	for _, r := range regions {
		byCode[r.CountryCode] = r
	}
	return &Engine{regions: byCode, currency: currency}
}

// Currency returns the engine's ISO 4217 currency code.
func (e *Engine) Currency() string {
	return e.currency
}

// ErrUnsupportedRegion is returned for country codes missing from the region
// table. The caller decides the fallback, not the engine.
var ErrUnsupportedRegion = &domain.Error{Code: domain.EINVALID, Message: "Shipping is not available for this region"}

// ComputeShipping looks up the country's base cost and free-shipping
// threshold. Shipping is free when the subtotal meets the threshold (if one
// exists) or when the base cost is zero.
func (e *Engine) ComputeShipping(countryCode string, subtotal domain.Money) (ShippingQuote, error) {
	region, ok := e.regions[countryCode]
	if !ok {
		return ShippingQuote{}, ErrUnsupportedRegion
	}

	free := region.BaseShippingCost.IsZero()
	if !free && region.FreeShippingThreshold != nil && subtotal.GreaterThanOrEqual(*region.FreeShippingThreshold) {
		free = true
	}

	if free {
		return ShippingQuote{Cost: decimal.Zero, IsFree: true}, nil
	}
	return ShippingQuote{Cost: region.BaseShippingCost, IsFree: false}, nil
}

// ComputeTax applies the country's tax rate to the subtotal, rounded
// half-up to the currency minor unit.
func (e *Engine) ComputeTax(countryCode string, subtotal domain.Money) (domain.Money, error) {
	region, ok := e.regions[countryCode]
	if !ok {
		return decimal.Zero, ErrUnsupportedRegion
	}
	return domain.RoundMinor(subtotal.Mul(region.TaxRate)), nil
}

// ComputeSummary prices the whole cart for a destination. The discount is
// clamped to the subtotal so it can never push the total negative.
func (e *Engine) ComputeSummary(lines []domain.CartLine, countryCode string, discount domain.Money) (domain.PriceSummary, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	subtotal = domain.RoundMinor(subtotal)

	quote, err := e.ComputeShipping(countryCode, subtotal)
	if err != nil {
		return domain.PriceSummary{}, err
	}

	tax, err := e.ComputeTax(countryCode, subtotal)
	if err != nil {
		return domain.PriceSummary{}, err
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = domain.RoundMinor(discount)

	total := subtotal.Sub(discount).Add(quote.Cost).Add(tax)

	return domain.PriceSummary{
		Subtotal:     subtotal,
		ShippingCost: quote.Cost,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
		Currency:     e.currency,
	}, nil
}
