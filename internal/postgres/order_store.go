package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/order"
)

// OrderStore implements order.Store over Postgres. Order creation runs in a
// transaction that decrements variant stock optimistically: if any line's
// stock moved below the ordered quantity since validation, the whole
// creation rolls back with ErrStockChanged.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a Postgres-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateOrder implements order.Store.
func (s *OrderStore) CreateOrder(ctx context.Context, req domain.OrderCreationRequest) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "postgres.CreateOrder", "Failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	for _, item := range req.Items {
		if err := decrementStock(ctx, tx, item); err != nil {
			return nil, err
		}
	}

	address, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return nil, domain.Internal(err, "postgres.CreateOrder", "Failed to encode address")
	}

	var (
		id        string
		createdAt time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (
			order_number, user_id, status,
			subtotal, shipping_cost, tax, discount, total, currency,
			shipping_address, payment_method
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		req.OrderNumber, req.UserID, string(req.Status),
		req.Summary.Subtotal.String(), req.Summary.ShippingCost.String(),
		req.Summary.Tax.String(), req.Summary.Discount.String(),
		req.Summary.Total.String(), req.Summary.Currency,
		address, req.PaymentMethod,
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, domain.Internal(err, "postgres.CreateOrder", "Failed to insert order")
	}

	for _, item := range req.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (
				order_id, product_id, product_name, variant_id, variant_name,
				quantity, unit_price, total_price, sku
			 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, item.ProductID, item.ProductName, item.VariantID, item.VariantName,
			item.Quantity, item.UnitPrice.String(), item.TotalPrice.String(), item.SKU,
		)
		if err != nil {
			return nil, domain.Internal(err, "postgres.CreateOrder", "Failed to insert order item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "postgres.CreateOrder", "Failed to commit order")
	}

	o := &domain.Order{
		ID:              id,
		OrderNumber:     req.OrderNumber,
		UserID:          req.UserID,
		Items:           append([]domain.OrderItem(nil), req.Items...),
		Summary:         req.Summary,
		ShippingAddress: req.ShippingAddress,
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	return o, nil
}

// decrementStock reserves stock for one item. Default pseudo-variants draw
// from product-level stock, resolved variants from the variant row.
func decrementStock(ctx context.Context, tx pgx.Tx, item domain.OrderItem) error {
	query := `UPDATE product_variants SET stock = stock - $1, updated_at = now()
		 WHERE id = $2 AND stock >= $1`
	key := item.VariantID
	if catalog.IsDefaultVariant(item.VariantID) {
		query = `UPDATE products SET stock = stock - $1, updated_at = now()
		 WHERE id = $2 AND stock >= $1`
		key = item.ProductID
	}

	ct, err := tx.Exec(ctx, query, item.Quantity, key)
	if err != nil {
		return domain.Internal(err, "postgres.CreateOrder", "Failed to reserve stock")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrStockChanged
	}
	return nil
}

const orderColumns = `
	id, order_number, user_id, status,
	subtotal::text, shipping_cost::text, tax::text, discount::text, total::text, currency,
	shipping_address, payment_method,
	provider_order_id, provider_transaction_id,
	paid_amount::text, paid_currency, paid_at,
	tracking_number, carrier, notes,
	created_at, updated_at`

// GetOrder implements order.Store.
func (s *OrderStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderBy(ctx, "id", id)
}

// GetOrderByNumber implements order.Store.
func (s *OrderStore) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.getOrderBy(ctx, "order_number", number)
}

func (s *OrderStore) getOrderBy(ctx context.Context, column, value string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1`, value)

	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "postgres.GetOrder", "Failed to load order")
	}

	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrdersByUser implements order.Store. Items are not loaded for lists.
func (s *OrderStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.Internal(err, "postgres.ListOrdersByUser", "Failed to list orders")
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, "postgres.ListOrdersByUser", "Failed to scan order")
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.ListOrdersByUser", "Failed to list orders")
	}
	return out, nil
}

// UpdateOrderStatus implements order.Store. Transitions that take the order
// out of the flow before shipment hand the reserved stock back to the
// catalog in the same transaction, so a cancelled or failed order never
// leaks units.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var prev string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to load order status")
	}
	from, err := domain.ParseOrderStatus(prev)
	if err != nil {
		return nil, domain.Internal(err, "postgres.UpdateOrderStatus", "Corrupt order status")
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return nil, domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to update status")
	}

	if domain.ReleasesStock(from, status) {
		if err := releaseStock(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to commit status update")
	}
	return s.GetOrder(ctx, id)
}

// releaseStock returns every item's reserved units to the catalog. Runs in
// the same transaction as the status change so a retry cannot release twice.
func releaseStock(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, variant_id, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to load items for stock release")
	}

	type reservation struct {
		productID string
		variantID string
		quantity  int
	}
	var items []reservation
	for rows.Next() {
		var r reservation
		if err := rows.Scan(&r.productID, &r.variantID, &r.quantity); err != nil {
			rows.Close()
			return domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to scan item for stock release")
		}
		items = append(items, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to load items for stock release")
	}

	for _, r := range items {
		query := `UPDATE product_variants SET stock = stock + $1, updated_at = now() WHERE id = $2`
		key := r.variantID
		if catalog.IsDefaultVariant(r.variantID) {
			query = `UPDATE products SET stock = stock + $1, updated_at = now() WHERE id = $2`
			key = r.productID
		}
		if _, err := tx.Exec(ctx, query, r.quantity, key); err != nil {
			return domain.Internal(err, "postgres.UpdateOrderStatus", "Failed to release stock")
		}
	}
	return nil
}

// SetProviderOrder implements order.Store.
func (s *OrderStore) SetProviderOrder(ctx context.Context, id, providerOrderID string) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE orders SET provider_order_id = $1, updated_at = now() WHERE id = $2`,
		providerOrderID, id,
	)
	if err != nil {
		return domain.Internal(err, "postgres.SetProviderOrder", "Failed to record provider order")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// MarkPaid implements order.Store.
func (s *OrderStore) MarkPaid(ctx context.Context, id string, rec order.PaymentRecord) (*domain.Order, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE orders SET
			status = $1,
			provider_transaction_id = $2,
			paid_amount = $3,
			paid_currency = $4,
			paid_at = $5,
			updated_at = now()
		 WHERE id = $6`,
		string(domain.StatusPaid), rec.ProviderTransactionID,
		rec.Amount.String(), rec.Currency, rec.PaidAt, id,
	)
	if err != nil {
		return nil, domain.Internal(err, "postgres.MarkPaid", "Failed to record payment")
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

// SetTracking implements order.Store.
func (s *OrderStore) SetTracking(ctx context.Context, id, trackingNumber, carrier, notes string) (*domain.Order, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE orders SET
			tracking_number = $1,
			carrier = $2,
			notes = CASE WHEN $3 = '' THEN notes ELSE $3 END,
			updated_at = now()
		 WHERE id = $4`,
		trackingNumber, carrier, notes, id,
	)
	if err != nil {
		return nil, domain.Internal(err, "postgres.SetTracking", "Failed to record tracking")
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *OrderStore) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, product_name, variant_id, variant_name,
		        quantity, unit_price::text, total_price::text, sku
		 FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return domain.Internal(err, "postgres.GetOrder", "Failed to load order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item       domain.OrderItem
			unitPrice  string
			totalPrice string
		)
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.VariantID,
			&item.VariantName, &item.Quantity, &unitPrice, &totalPrice, &item.SKU); err != nil {
			return domain.Internal(err, "postgres.GetOrder", "Failed to scan order item")
		}
		if item.UnitPrice, err = domain.MoneyFromString(unitPrice); err != nil {
			return domain.Internal(err, "postgres.GetOrder", "Corrupt item price")
		}
		if item.TotalPrice, err = domain.MoneyFromString(totalPrice); err != nil {
			return domain.Internal(err, "postgres.GetOrder", "Corrupt item total")
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

// scanOrder reads one order row. The caller handles pgx.ErrNoRows.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		status       string
		subtotal     string
		shippingCost string
		tax          string
		discount     string
		total        string
		address      []byte
		paidAmount   *string
		paidCurrency *string
		paidAt       *time.Time
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status,
		&subtotal, &shippingCost, &tax, &discount, &total, &o.Summary.Currency,
		&address, &o.PaymentMethod,
		&o.ProviderOrderID, &o.ProviderTransactionID,
		&paidAmount, &paidCurrency, &paidAt,
		&o.TrackingNumber, &o.Carrier, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Status, err = domain.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		dst *domain.Money
		src string
	}{
		{&o.Summary.Subtotal, subtotal},
		{&o.Summary.ShippingCost, shippingCost},
		{&o.Summary.Tax, tax},
		{&o.Summary.Discount, discount},
		{&o.Summary.Total, total},
	} {
		if *pair.dst, err = domain.MoneyFromString(pair.src); err != nil {
			return nil, err
		}
	}

	if paidAmount != nil {
		if o.PaidAmount, err = domain.MoneyFromString(*paidAmount); err != nil {
			return nil, err
		}
	}
	if paidCurrency != nil {
		o.PaidCurrency = *paidCurrency
	}
	o.PaidAt = paidAt
	return &o, nil
}
