package cart

import (
	"context"
	"fmt"

	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/domain"
)

// Validator reconciles cart lines against live catalog truth. It never
// rejects a cart outright; it repairs what it can and reports what it
// changed so the shopper sees the delta before paying.
type Validator struct {
	catalog catalog.Catalog
}

// NewValidator creates a validator backed by the given catalog.
func NewValidator(c catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate re-fetches every line from the catalog and applies the repair
// rules in order: a product or variant that no longer exists drops the line,
// a changed price updates the line to the live price, and a quantity above
// available stock is clamped (a line clamped to zero is dropped). The
// returned validation carries the repaired lines and one issue per change.
//
// Catalog failures other than not-found abort validation; a flaky catalog
// must not silently empty a cart.
func (v *Validator) Validate(ctx context.Context, lines []domain.CartLine) (domain.CartValidation, error) {
	result := domain.CartValidation{
		IsValid: true,
		Lines:   make([]domain.CartLine, 0, len(lines)),
	}

	for _, line := range lines {
		product, err := v.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				result.IsValid = false
				result.Issues = append(result.Issues, domain.CartLineIssue{
					ProductName: line.Name,
					Reason:      domain.ReasonProductUnavailable,
				})
				continue
			}
			return domain.CartValidation{}, fmt.Errorf("failed to validate cart line %s: %w", line.ProductID, err)
		}

		variant, err := v.resolveLine(ctx, product, line)
		if err != nil {
			return domain.CartValidation{}, fmt.Errorf("failed to validate cart line %s: %w", line.ProductID, err)
		}
		if variant == nil {
			result.IsValid = false
			result.Issues = append(result.Issues, domain.CartLineIssue{
				ProductName: product.Name,
				Reason:      domain.ReasonProductUnavailable,
			})
			continue
		}

		line.Name = product.Name
		line.AvailableStock = variant.Stock
		line.SKU = variant.SKU

		if !line.UnitPrice.Equal(variant.Price) {
			line.UnitPrice = variant.Price
			result.IsValid = false
			result.Issues = append(result.Issues, domain.CartLineIssue{
				ProductName: product.Name,
				Reason:      domain.ReasonPriceChanged,
			})
		}

		if line.Quantity > variant.Stock {
			line.Quantity = variant.Stock
			result.IsValid = false
			result.Issues = append(result.Issues, domain.CartLineIssue{
				ProductName: product.Name,
				Reason:      domain.ReasonStockReduced,
			})
			if line.Quantity <= 0 {
				continue
			}
		}

		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

// resolveLine maps a stored cart line back to its current catalog variant.
// A nil variant with nil error means the line no longer matches anything
// purchasable.
func (v *Validator) resolveLine(ctx context.Context, product *domain.Product, line domain.CartLine) (*domain.Variant, error) {
	if catalog.IsDefaultVariant(line.VariantID) {
		if product.HasVariants() {
			// Product grew variants since the line was added; the
			// stored selection is no longer meaningful.
			return nil, nil
		}
		variant, err := catalog.ResolveVariant(product, "", "")
		if err != nil {
			return nil, err
		}
		return variant, nil
	}

	variant, err := v.catalog.GetVariant(ctx, product.ID, line.ColorID, line.SizeID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) || domain.IsCode(err, domain.EINVALID) {
			return nil, nil
		}
		return nil, err
	}
	return variant, nil
}
