package catalog

import (
	"strings"

	"github.com/tmarchant/vesper/internal/domain"
)

const defaultVariantPrefix = "default:"

// DefaultVariantID returns the pseudo-variant ID for a variant-less product.
// The ID embeds the product ID so cart operations keyed on variant ID stay
// unambiguous when several variant-less products share a cart.
func DefaultVariantID(productID string) string {
	return defaultVariantPrefix + productID
}

// IsDefaultVariant reports whether variantID names a default pseudo-variant.
func IsDefaultVariant(variantID string) bool {
	return strings.HasPrefix(variantID, defaultVariantPrefix)
}

// ResolveVariant finds the unique variant of product matching the selected
// color and size.
//
// Contract: if the product declares any variants, a cart line must reference
// a resolved variant; the default pseudo-variant is only returned for
// variant-less products. An incomplete selection fails with
// ErrVariantNotSelected, and a color whose size list does not include the
// requested size fails with ErrSizeUnavailableForColor so the storefront can
// distinguish "pick a size" from "this combination does not exist".
func ResolveVariant(product *domain.Product, colorID, sizeID string) (*domain.Variant, error) {
	if !product.HasVariants() {
		v := domain.Variant{
			ID:    DefaultVariantID(product.ID),
			Price: product.Price,
			SKU:   product.ID,
			Stock: product.Stock,
		}
		return &v, nil
	}

	if colorID == "" || sizeID == "" {
		return nil, domain.ErrVariantNotSelected
	}

	colorExists := false
	for i := range product.Variants {
		v := product.Variants[i]
		if v.ColorID == colorID {
			colorExists = true
			if v.SizeID == sizeID {
				matched := v
				return &matched, nil
			}
		}
	}

	if colorExists {
		return nil, domain.ErrSizeUnavailableForColor
	}
	return nil, domain.ErrVariantNotFound
}
