// Package handler exposes the checkout engine over a JSON HTTP API.
// Handlers decode, delegate to the services, and translate domain error
// codes into HTTP statuses; no business logic lives here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/catalog"
	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/middleware"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/router"
)

// Handler carries the services the HTTP surface delegates to.
type Handler struct {
	carts     *cart.Manager
	catalog   catalog.Catalog
	validator *cart.Validator
	checkout  *checkout.Service
	orders    order.Store
	lifecycle *order.Lifecycle
	logger    *slog.Logger
}

// New creates the HTTP handler.
func New(
	carts *cart.Manager,
	cat catalog.Catalog,
	validator *cart.Validator,
	checkoutSvc *checkout.Service,
	orders order.Store,
	lifecycle *order.Lifecycle,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		carts:     carts,
		catalog:   cat,
		validator: validator,
		checkout:  checkoutSvc,
		orders:    orders,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Routes registers all API routes.
func (h *Handler) Routes(r *router.Router) {
	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddCartItem)
	r.Patch("/cart/items/{variantID}", h.UpdateCartItem)
	r.Delete("/cart/items/{variantID}", h.RemoveCartItem)
	r.Delete("/cart", h.ClearCart)

	r.Post("/checkout/session", h.StartCheckout)
	r.Get("/checkout/session/{id}", h.ResumeCheckout)
	r.Post("/checkout/validate", h.ValidateCart)
	r.Post("/checkout/start", h.ConfirmCart)
	r.Post("/checkout/payment", h.PreparePayment)
	r.Post("/checkout/capture", h.Capture)
	r.Post("/checkout/back", h.Back)

	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/orders/{id}/transitions", h.GetTransitions)
	r.Post("/orders/{id}/status", h.TransitionOrder)

	r.Get("/healthz", h.Health)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// shopperKey identifies the shopper's cart. The storefront gateway sets
// X-User-ID after authentication; anonymous shoppers share the header with
// a generated browser token.
func shopperKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

// cartFor loads the shopper's cart store.
func (h *Handler) cartFor(r *http.Request) (*cart.Store, error) {
	return h.carts.ForKey(shopperKey(r))
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		middleware.GetLogger(r.Context(), h.logger).Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		var ve *domain.ValidationError
		errors.As(err, &ve)
		middleware.GetLogger(r.Context(), h.logger).Info("request rejected", "code", domain.EINVALID, "error", err)
		h.respondJSON(w, r, http.StatusBadRequest, map[string]any{
			"code":    domain.EINVALID,
			"message": "Validation failed",
			"fields":  ve.Fields,
		})
		return
	}

	code := domain.ErrorCode(err)
	status := statusFromCode(code)

	logger := middleware.GetLogger(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Info("request rejected", "code", code, "error", err)
	}

	h.respondJSON(w, r, status, map[string]string{
		"code":    code,
		"message": domain.ErrorMessage(err),
	})
}

func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.Error{Code: domain.EINVALID, Message: "Invalid JSON body", Err: err}
	}
	return nil
}
