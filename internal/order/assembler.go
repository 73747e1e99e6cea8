package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/pricing"
)

// Assembler builds order creation requests from validated carts. It is the
// only place order pricing is finalized: the client's summary is advisory
// and every amount on the order comes from a fresh server-side computation.
type Assembler struct {
	engine   *pricing.Engine
	validate *validator.Validate
}

// NewAssembler creates an assembler pricing against the given engine.
func NewAssembler(engine *pricing.Engine) *Assembler {
	return &Assembler{
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// AssembleInput is everything checkout has gathered by the time the shopper
// confirms the order.
type AssembleInput struct {
	UserID        string
	Lines         []domain.CartLine
	Address       domain.ShippingAddress
	ClientSummary domain.PriceSummary
	Discount      domain.Money
	PaymentMethod string
}

// Assemble validates the input, recomputes the authoritative summary and
// freezes the cart lines into order items. The cart itself is untouched;
// it is only cleared after payment capture succeeds.
//
// A client summary that disagrees with the recomputation by more than one
// minor unit per field fails with ErrPriceMismatch so a stale checkout page
// cannot place an order at outdated prices.
func (a *Assembler) Assemble(in AssembleInput) (domain.OrderCreationRequest, error) {
	if len(in.Lines) == 0 {
		return domain.OrderCreationRequest{}, domain.ErrEmptyCart
	}

	if err := a.validate.Struct(in.Address); err != nil {
		return domain.OrderCreationRequest{}, addressError(err)
	}

	summary, err := a.engine.ComputeSummary(in.Lines, in.Address.CountryCode, in.Discount)
	if err != nil {
		return domain.OrderCreationRequest{}, fmt.Errorf("failed to price order: %w", err)
	}

	if !summary.EqualWithin(in.ClientSummary, domain.MinorUnitTolerance) {
		return domain.OrderCreationRequest{}, domain.ErrPriceMismatch
	}

	items := make([]domain.OrderItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		items = append(items, domain.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			VariantID:   line.VariantID,
			VariantName: variantName(line),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.LineTotal(),
			SKU:         line.SKU,
		})
	}

	return domain.OrderCreationRequest{
		OrderNumber:     NewOrderNumber(time.Now()),
		UserID:          in.UserID,
		Items:           items,
		Summary:         summary,
		ShippingAddress: in.Address,
		Status:          domain.StatusPending,
		PaymentMethod:   in.PaymentMethod,
	}, nil
}

// NewOrderNumber generates a human-readable order number like
// ORD-20260830-3F7A. Uniqueness is enforced by the store, not here.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func variantName(line domain.CartLine) string {
	if line.ColorID == "" && line.SizeID == "" {
		return ""
	}
	return strings.TrimSpace(line.ColorID + " " + line.SizeID)
}

// addressError converts validator output into the domain address error with
// the offending fields attached.
func addressError(err error) error {
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if len(fields) == 0 {
		return domain.ErrInvalidAddress
	}
	return &domain.Error{
		Code:    domain.EINVALID,
		Message: fmt.Sprintf("Shipping address is invalid: %s", strings.Join(fields, ", ")),
		Err:     domain.ErrInvalidAddress,
	}
}
