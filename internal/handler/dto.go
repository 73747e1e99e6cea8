package handler

import (
	"time"

	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/domain"
)

// Money is rendered as fixed 2-decimal strings so JSON clients never touch
// floats.

type summaryDTO struct {
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shippingCost"`
	Tax          string `json:"tax"`
	Discount     string `json:"discount"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
}

func newSummaryDTO(s domain.PriceSummary) summaryDTO {
	return summaryDTO{
		Subtotal:     s.Subtotal.StringFixed(2),
		ShippingCost: s.ShippingCost.StringFixed(2),
		Tax:          s.Tax.StringFixed(2),
		Discount:     s.Discount.StringFixed(2),
		Total:        s.Total.StringFixed(2),
		Currency:     s.Currency,
	}
}

type lineDTO struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"lineTotal"`
	ColorID   string `json:"colorId,omitempty"`
	SizeID    string `json:"sizeId,omitempty"`
	SKU       string `json:"sku,omitempty"`
}

func newLineDTO(l domain.CartLine) lineDTO {
	return lineDTO{
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		Name:      l.Name,
		UnitPrice: l.UnitPrice.StringFixed(2),
		Quantity:  l.Quantity,
		LineTotal: l.LineTotal().StringFixed(2),
		ColorID:   l.ColorID,
		SizeID:    l.SizeID,
		SKU:       l.SKU,
	}
}

type cartDTO struct {
	Items   []lineDTO  `json:"items"`
	Summary summaryDTO `json:"summary"`
}

func newCartDTO(lines []domain.CartLine, summary domain.PriceSummary) cartDTO {
	items := make([]lineDTO, 0, len(lines))
	for _, l := range lines {
		items = append(items, newLineDTO(l))
	}
	return cartDTO{Items: items, Summary: newSummaryDTO(summary)}
}

type itemDTO struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	VariantID   string `json:"variantId"`
	VariantName string `json:"variantName,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
	SKU         string `json:"sku,omitempty"`
}

type orderDTO struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	UserID          string                 `json:"userId"`
	Status          string                 `json:"status"`
	Items           []itemDTO              `json:"items"`
	Summary         summaryDTO             `json:"summary"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod,omitempty"`

	ProviderOrderID       string     `json:"providerOrderId,omitempty"`
	ProviderTransactionID string     `json:"providerTransactionId,omitempty"`
	PaidAmount            string     `json:"paidAmount,omitempty"`
	PaidCurrency          string     `json:"paidCurrency,omitempty"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`

	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	Notes          string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newOrderDTO(o *domain.Order) orderDTO {
	items := make([]itemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			VariantID:   it.VariantID,
			VariantName: it.VariantName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			TotalPrice:  it.TotalPrice.StringFixed(2),
			SKU:         it.SKU,
		})
	}

	dto := orderDTO{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		UserID:                o.UserID,
		Status:                string(o.Status),
		Items:                 items,
		Summary:               newSummaryDTO(o.Summary),
		ShippingAddress:       o.ShippingAddress,
		PaymentMethod:         o.PaymentMethod,
		ProviderOrderID:       o.ProviderOrderID,
		ProviderTransactionID: o.ProviderTransactionID,
		TrackingNumber:        o.TrackingNumber,
		Carrier:               o.Carrier,
		Notes:                 o.Notes,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if o.PaidAt != nil {
		dto.PaidAmount = o.PaidAmount.StringFixed(2)
		dto.PaidCurrency = o.PaidCurrency
		dto.PaidAt = o.PaidAt
	}
	return dto
}

type sessionDTO struct {
	ID        string     `json:"id"`
	Step      int        `json:"step"`
	StepName  string     `json:"stepName"`
	OrderID   string     `json:"orderId,omitempty"`
	Summary   summaryDTO `json:"summary"`
	Items     []itemDTO  `json:"items,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func newSessionDTO(s checkout.Session) sessionDTO {
	items := make([]itemDTO, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, itemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			VariantID:   it.VariantID,
			VariantName: it.VariantName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			TotalPrice:  it.TotalPrice.StringFixed(2),
			SKU:         it.SKU,
		})
	}
	return sessionDTO{
		ID:        s.ID,
		Step:      int(s.Step),
		StepName:  s.Step.String(),
		OrderID:   s.OrderID,
		Summary:   newSummaryDTO(s.Summary),
		Items:     items,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt(),
	}
}

type validationDTO struct {
	IsValid bool                   `json:"isValid"`
	Issues  []domain.CartLineIssue `json:"issues"`
	Items   []lineDTO              `json:"items"`
}

func newValidationDTO(v domain.CartValidation) validationDTO {
	items := make([]lineDTO, 0, len(v.Lines))
	for _, l := range v.Lines {
		items = append(items, newLineDTO(l))
	}
	issues := v.Issues
	if issues == nil {
		issues = []domain.CartLineIssue{}
	}
	return validationDTO{IsValid: v.IsValid, Issues: issues, Items: items}
}
