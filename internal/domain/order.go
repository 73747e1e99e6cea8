package domain

import (
	"strings"
	"time"
)

// Order-related domain errors.
var (
	ErrOrderNotFound  = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrEmptyCart      = &Error{Code: EINVALID, Message: "Cannot create an order from an empty cart"}
	ErrInvalidAddress = &Error{Code: EINVALID, Message: "Shipping address is missing required fields"}

	// ErrPriceMismatch indicates a client-supplied summary disagreed with the
	// authoritative computation beyond minor-unit rounding. The cart is left
	// intact; the caller should re-validate and retry.
	ErrPriceMismatch = &Error{Code: ECONFLICT, Message: "Submitted totals do not match the computed totals"}

	// ErrStockChanged is surfaced when the order store rejects creation
	// because stock moved between validation and commit.
	ErrStockChanged = &Error{Code: ECONFLICT, Message: "Stock changed after validation"}
)

// OrderStatus is the closed set of lifecycle states an order can hold.
// String casing is normalized once at the boundary via ParseOrderStatus;
// the core only compares OrderStatus values.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusPaid       OrderStatus = "PAID"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusFailed     OrderStatus = "FAILED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// transitions is the directed edge set of the order lifecycle.
// Anything not listed is illegal. Terminal statuses have no entry.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCancelled, StatusFailed},
	StatusPaid:       {StatusProcessing, StatusRefunded, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
}

// ParseOrderStatus normalizes an external status string into the closed enum.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusFailed, StatusRefunded:
		return status, nil
	}
	return "", Errorf(EINVALID, "order.status", "unknown order status: %q", s)
}

// CanTransition is a side-effect-free check that target is a legal next
// status from current. The mutation itself happens separately, only after
// this check passes.
func CanTransition(current, target OrderStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal next statuses for the given status.
// Empty for terminal statuses. The UI disables anything not in this set.
func NextStatuses(current OrderStatus) []OrderStatus {
	next := transitions[current]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leads out of the status.
func IsTerminal(s OrderStatus) bool {
	return len(transitions[s]) == 0
}

// ReleasesStock reports whether committing the transition from -> to returns
// the stock reserved at order creation. Reservations are consumed by
// shipment, so any cancellation or failure before SHIPPED releases them.
func ReleasesStock(from, to OrderStatus) bool {
	if to != StatusCancelled && to != StatusFailed {
		return false
	}
	switch from {
	case StatusPending, StatusPaid, StatusProcessing:
		return true
	}
	return false
}

// IllegalTransitionError rejects a transition not present in the edge set.
// Reaching this from a well-formed menu is a programming bug, so callers
// log it as unexpected even though it is safe to show the user.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return "illegal order transition: " + string(e.From) + " -> " + string(e.To)
}

// ShippingAddress is the canonical delivery address, produced by an adapter
// at the system boundary. Immutable once attached to an order.
type ShippingAddress struct {
	FullName    string `json:"fullName" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	AddressLine string `json:"addressLine" validate:"required"`
	City        string `json:"city" validate:"required"`
	Province    string `json:"province"`
	District    string `json:"district"`
	Ward        string `json:"ward"`
	CountryCode string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
}

// OrderItem is a frozen copy of a cart line, decoupled from CartLine so
// later catalog edits cannot retroactively alter a placed order.
type OrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	VariantID   string `json:"variantId"`
	VariantName string `json:"variantName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
	TotalPrice  Money  `json:"totalPrice"`
	SKU         string `json:"sku"`
}

// Order is created exactly once by the assembler, then mutated only through
// lifecycle transitions and payment reconciliation. After a terminal status
// it is logically immutable.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	Summary         PriceSummary
	ShippingAddress ShippingAddress
	Status          OrderStatus
	PaymentMethod   string

	ProviderOrderID       string
	ProviderTransactionID string
	PaidAmount            Money
	PaidCurrency          string
	PaidAt                *time.Time

	TrackingNumber string
	Carrier        string
	Notes          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderCreationRequest is the assembler's output, handed to the order store.
type OrderCreationRequest struct {
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	Summary         PriceSummary
	ShippingAddress ShippingAddress
	Status          OrderStatus
	PaymentMethod   string
}
