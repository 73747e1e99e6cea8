// Package catalog defines the read-only product catalog collaborator and
// the variant resolver the cart uses to turn a (color, size) selection into
// a concrete purchasable variant.
package catalog

import (
	"context"

	"github.com/tmarchant/vesper/internal/domain"
)

// Catalog is the external product source. Implementations may be backed by
// Postgres, an API client, or an in-memory fixture; the engine only reads.
type Catalog interface {
	// GetProduct returns the normalized product or domain.ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// GetVariant returns the variant matching (colorID, sizeID) for the
	// product, or nil with no error when no variant matches.
	GetVariant(ctx context.Context, productID, colorID, sizeID string) (*domain.Variant, error)
}
