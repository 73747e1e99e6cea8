package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/domain"
)

// Catalog implements catalog.Catalog over Postgres.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog creates a Postgres-backed catalog.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// GetProduct loads a product and its variants.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, price::text, currency, stock FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &price, &p.Currency, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("postgres.GetProduct", "Product", id)
	}
	if err != nil {
		return nil, domain.Internal(err, "postgres.GetProduct", "Failed to load product")
	}
	if p.Price, err = domain.MoneyFromString(price); err != nil {
		return nil, domain.Internal(err, "postgres.GetProduct", "Corrupt product price")
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id, color_id, size_id, price::text, stock, sku
		 FROM product_variants WHERE product_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, domain.Internal(err, "postgres.GetProduct", "Failed to load variants")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v      domain.Variant
			vPrice string
		)
		if err := rows.Scan(&v.ID, &v.ColorID, &v.SizeID, &vPrice, &v.Stock, &v.SKU); err != nil {
			return nil, domain.Internal(err, "postgres.GetProduct", "Failed to scan variant")
		}
		if v.Price, err = domain.MoneyFromString(vPrice); err != nil {
			return nil, domain.Internal(err, "postgres.GetProduct", "Corrupt variant price")
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.GetProduct", "Failed to load variants")
	}

	return &p, nil
}

// GetVariant resolves a color and size selection against the stored product.
// Returns nil, nil when the product exists but no variant matches.
func (c *Catalog) GetVariant(ctx context.Context, productID, colorID, sizeID string) (*domain.Variant, error) {
	p, err := c.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	v, err := catalog.ResolveVariant(p, colorID, sizeID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve variant for %s: %w", productID, err)
	}
	return v, nil
}
