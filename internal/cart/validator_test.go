package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/domain"
)

func variantProduct(id, name string, priceCents int64, stock int) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  name,
		Price: domain.MoneyFromCents(priceCents),
		Variants: []domain.Variant{
			{ID: id + "-red-m", ColorID: "red", SizeID: "m", Price: domain.MoneyFromCents(priceCents), Stock: stock, SKU: id + "-RED-M"},
		},
	}
}

func variantLine(p domain.Product, qty int) domain.CartLine {
	v := p.Variants[0]
	return domain.CartLine{
		ProductID: p.ID,
		VariantID: v.ID,
		Name:      p.Name,
		UnitPrice: v.Price,
		Quantity:  qty,
		ColorID:   v.ColorID,
		SizeID:    v.SizeID,
		SKU:       v.SKU,
	}
}

func TestValidator_CleanCartPassesUnchanged(t *testing.T) {
	cat := catalog.NewMockCatalog()
	tee := variantProduct("tee", "Logo Tee", 2500, 10)
	cat.Put(tee)

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{variantLine(tee, 2)})
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Quantity)
	assert.Equal(t, 10, result.Lines[0].AvailableStock)
}

func TestValidator_DropsRemovedProduct(t *testing.T) {
	cat := catalog.NewMockCatalog()
	tee := variantProduct("tee", "Logo Tee", 2500, 10)

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{variantLine(tee, 2)})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Empty(t, result.Lines)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, domain.ReasonProductUnavailable, result.Issues[0].Reason)
	assert.Equal(t, "Logo Tee", result.Issues[0].ProductName)
}

func TestValidator_RepricesChangedLine(t *testing.T) {
	cat := catalog.NewMockCatalog()
	tee := variantProduct("tee", "Logo Tee", 2500, 10)
	stale := variantLine(tee, 2)

	// Price went up after the line was added.
	tee.Variants[0].Price = domain.MoneyFromCents(2900)
	cat.Put(tee)

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{stale})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, domain.ReasonPriceChanged, result.Issues[0].Reason)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "29", result.Lines[0].UnitPrice.String())
	assert.Equal(t, 2, result.Lines[0].Quantity)
}

func TestValidator_ClampsQuantityToStock(t *testing.T) {
	cat := catalog.NewMockCatalog()
	tee := variantProduct("tee", "Logo Tee", 2500, 3)
	cat.Put(tee)

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{variantLine(tee, 5)})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, domain.ReasonStockReduced, result.Issues[0].Reason)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 3, result.Lines[0].Quantity)
}

func TestValidator_DropsLineClampedToZero(t *testing.T) {
	cat := catalog.NewMockCatalog()
	tee := variantProduct("tee", "Logo Tee", 2500, 0)
	cat.Put(tee)

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{variantLine(tee, 2)})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Empty(t, result.Lines)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, domain.ReasonStockReduced, result.Issues[0].Reason)
}

func TestValidator_MixedCartRepairsEveryLine(t *testing.T) {
	cat := catalog.NewMockCatalog()

	tee := variantProduct("tee", "Logo Tee", 2500, 10)
	staleTee := variantLine(tee, 2)
	tee.Variants[0].Price = domain.MoneyFromCents(2900)
	cat.Put(tee)

	hoodie := variantProduct("hoodie", "Zip Hoodie", 6000, 1)
	cat.Put(hoodie)

	mug := variantProduct("mug", "Camp Mug", 1400, 10)
	// mug never stored: removed from catalog.

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{
		staleTee,
		variantLine(hoodie, 4),
		variantLine(mug, 1),
	})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, "29", result.Lines[0].UnitPrice.String())
	assert.Equal(t, 1, result.Lines[1].Quantity)

	reasons := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		reasons = append(reasons, issue.Reason)
	}
	assert.ElementsMatch(t, []string{
		domain.ReasonPriceChanged,
		domain.ReasonStockReduced,
		domain.ReasonProductUnavailable,
	}, reasons)
}

func TestValidator_CatalogFailureAbortsValidation(t *testing.T) {
	cat := catalog.NewMockCatalog()
	boom := errors.New("catalog timeout")
	cat.GetProductFunc = func(ctx context.Context, id string) (*domain.Product, error) {
		return nil, boom
	}

	tee := variantProduct("tee", "Logo Tee", 2500, 10)
	v := cart.NewValidator(cat)
	_, err := v.Validate(context.Background(), []domain.CartLine{variantLine(tee, 1)})

	assert.ErrorIs(t, err, boom)
}

func TestValidator_DefaultVariantFollowsProductStock(t *testing.T) {
	cat := catalog.NewMockCatalog()
	cat.Put(domain.Product{
		ID:    "poster",
		Name:  "Tour Poster",
		Price: domain.MoneyFromCents(1800),
		Stock: 2,
	})

	v := cart.NewValidator(cat)
	result, err := v.Validate(context.Background(), []domain.CartLine{{
		ProductID: "poster",
		VariantID: catalog.DefaultVariantID("poster"),
		Name:      "Tour Poster",
		UnitPrice: domain.MoneyFromCents(1800),
		Quantity:  5,
	}})
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2, result.Lines[0].Quantity)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, domain.ReasonStockReduced, result.Issues[0].Reason)
}
