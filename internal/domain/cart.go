package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cart-related domain errors.
var (
	ErrCartEmpty        = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrCartLineNotFound = &Error{Code: ENOTFOUND, Message: "Cart line not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
)

// QuantityExceedsStockError rejects a requested quantity above what the
// catalog can currently supply.
type QuantityExceedsStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *QuantityExceedsStockError) Error() string {
	return fmt.Sprintf("requested %d of %s, %d available", e.Requested, e.ProductName, e.Available)
}

// NewQuantityExceedsStock builds the EINVALID error carrying the stock
// detail, so the storefront can show the shopper what is still possible.
func NewQuantityExceedsStock(productName string, requested, available int) error {
	return &Error{
		Code:    EINVALID,
		Message: fmt.Sprintf("Only %d of %s available", available, productName),
		Err:     &QuantityExceedsStockError{ProductName: productName, Requested: requested, Available: available},
	}
}

// CartLine is one entry in the shopping cart. UnitPrice is a snapshot taken
// when the line was added; only the cart validator may refresh it, and it
// must report the change when it does.
type CartLine struct {
	ProductID string
	VariantID string
	Name      string
	UnitPrice Money
	Quantity  int

	// AvailableStock is the stock snapshot taken when the catalog was last
	// consulted. Zero means no snapshot; stock is then enforced at checkout.
	AvailableStock int
	SKU            string
	ColorID        string
	SizeID         string
}

// LineTotal is UnitPrice * Quantity.
func (l CartLine) LineTotal() Money {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart validation reasons, reported per adjusted line.
const (
	ReasonProductUnavailable = "product_unavailable"
	ReasonPriceChanged       = "price_changed"
	ReasonStockReduced       = "stock_reduced"
)

// CartLineIssue records one repair the validator made to a cart line.
type CartLineIssue struct {
	ProductName string `json:"productName"`
	Reason      string `json:"reason"`
}

// CartValidation is the outcome of revalidating a cart against live catalog
// truth. IsValid means nothing changed; a cart with issues may still proceed
// after user acknowledgment. Callers must treat "no lines remain" as a
// separate, hard failure.
type CartValidation struct {
	IsValid bool
	Issues  []CartLineIssue
	Lines   []CartLine
}

// Empty reports whether validation left no purchasable lines.
func (v CartValidation) Empty() bool {
	return len(v.Lines) == 0
}
