package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/domain"
)

// StartCheckout opens a new checkout session for the shopper.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := h.checkout.Start(r.Context(), shopperKey(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, newSessionDTO(session))
}

// ResumeCheckout returns the session snapshot, or 409 if it expired.
func (h *Handler) ResumeCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := h.checkout.Resume(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newSessionDTO(session))
}

// ValidateCart runs cart validation without advancing checkout, so the
// storefront can show repairs before the shopper commits.
func (h *Handler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	validation, err := h.validator.Validate(r.Context(), store.Lines())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newValidationDTO(validation))
}

type confirmCartRequest struct {
	SessionID         string                 `json:"sessionId"`
	Address           domain.ShippingAddress `json:"address"`
	Summary           summaryDTO             `json:"summary"`
	Discount          string                 `json:"discount"`
	PaymentMethod     string                 `json:"paymentMethod"`
	AcknowledgeIssues bool                   `json:"acknowledgeIssues"`
}

func (req confirmCartRequest) toInput() (checkout.ConfirmCartInput, error) {
	parse := func(s string) (domain.Money, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return domain.MoneyFromString(s)
	}

	var (
		in  checkout.ConfirmCartInput
		err error
	)
	if in.ClientSummary.Subtotal, err = parse(req.Summary.Subtotal); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "summary.subtotal", "is not a valid amount")
	}
	if in.ClientSummary.ShippingCost, err = parse(req.Summary.ShippingCost); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "summary.shippingCost", "is not a valid amount")
	}
	if in.ClientSummary.Tax, err = parse(req.Summary.Tax); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "summary.tax", "is not a valid amount")
	}
	if in.ClientSummary.Discount, err = parse(req.Summary.Discount); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "summary.discount", "is not a valid amount")
	}
	if in.ClientSummary.Total, err = parse(req.Summary.Total); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "summary.total", "is not a valid amount")
	}
	in.ClientSummary.Currency = req.Summary.Currency

	if in.Discount, err = parse(req.Discount); err != nil {
		return in, domain.NewValidationError("handler.ConfirmCart", "discount", "is not a valid amount")
	}

	in.Address = req.Address
	in.PaymentMethod = req.PaymentMethod
	in.AcknowledgeIssues = req.AcknowledgeIssues
	return in, nil
}

// ConfirmCart completes the cart step: validation, order creation, advance
// to payment. A repaired cart comes back as 409 with the validation result
// so the storefront can show the delta and retry with acknowledgment.
func (h *Handler) ConfirmCart(w http.ResponseWriter, r *http.Request) {
	var req confirmCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	session, validation, err := h.checkout.ConfirmCart(r.Context(), req.SessionID, store, in)
	if errors.Is(err, checkout.ErrCartChanged) {
		h.respondJSON(w, r, http.StatusConflict, map[string]any{
			"code":       domain.ErrorCode(err),
			"message":    domain.ErrorMessage(err),
			"validation": newValidationDTO(validation),
		})
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"session":    newSessionDTO(session),
		"validation": newValidationDTO(validation),
	})
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

// PreparePayment opens the provider order and returns its ID.
func (h *Handler) PreparePayment(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	providerOrderID, err := h.checkout.PreparePayment(r.Context(), req.SessionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"providerOrderId": providerOrderID})
}

// Capture settles payment and completes the checkout. Idempotent: a session
// whose order is already paid completes without a second charge.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	session, paid, err := h.checkout.Capture(r.Context(), req.SessionID, store)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"session": newSessionDTO(session),
		"order":   newOrderDTO(paid),
	})
}

// Back returns the session to the cart step, cancelling the pending order.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	session, err := h.checkout.Back(r.Context(), req.SessionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newSessionDTO(session))
}
