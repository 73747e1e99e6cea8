package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tmarchant/vesper/internal/domain"
)

// DefaultRegions is the built-in region table used when no table is
// configured. Rates are flat per country; anything not listed is an
// unsupported region.
func DefaultRegions() []Region {
	usThreshold := domain.MoneyFromCents(5000)
	caThreshold := domain.MoneyFromCents(7500)

	return []Region{
		{
			CountryCode:           "US",
			BaseShippingCost:      domain.MoneyFromCents(500),
			FreeShippingThreshold: &usThreshold,
			TaxRate:               decimal.NewFromFloat(0.08),
		},
		{
			CountryCode:           "CA",
			BaseShippingCost:      domain.MoneyFromCents(900),
			FreeShippingThreshold: &caThreshold,
			TaxRate:               decimal.NewFromFloat(0.13),
		},
		{
			CountryCode:      "GB",
			BaseShippingCost: domain.MoneyFromCents(1200),
			TaxRate:          decimal.NewFromFloat(0.20),
		},
		{
			// Domestic pickup region, always free.
			CountryCode:      "PR",
			BaseShippingCost: decimal.Zero,
			TaxRate:          decimal.NewFromFloat(0.105),
		},
	}
}
