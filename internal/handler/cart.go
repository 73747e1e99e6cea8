package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tmarchant/vesper/internal/domain"
)

// countryParam reads the destination country for totals, defaulting to US.
func countryParam(r *http.Request) string {
	if c := r.URL.Query().Get("country"); c != "" {
		return c
	}
	return "US"
}

// GetCart returns the shopper's cart with totals for the given country.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := store.Totals(countryParam(r), decimal.Zero)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newCartDTO(store.Lines(), summary))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	ColorID   string `json:"colorId"`
	SizeID    string `json:"sizeId"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem resolves the selection against the catalog and adds the line
// at the current price.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ProductID == "" {
		h.respondError(w, r, domain.Invalid("handler.AddCartItem", "productId is required"))
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	variant, err := h.catalog.GetVariant(r.Context(), req.ProductID, req.ColorID, req.SizeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if variant == nil {
		h.respondError(w, r, domain.ErrVariantNotFound)
		return
	}
	if req.Quantity > variant.Stock {
		h.respondError(w, r, domain.NewQuantityExceedsStock(product.Name, req.Quantity, variant.Stock))
		return
	}

	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	err = store.Add(domain.CartLine{
		ProductID:      product.ID,
		VariantID:      variant.ID,
		Name:           product.Name,
		UnitPrice:      variant.Price,
		Quantity:       req.Quantity,
		AvailableStock: variant.Stock,
		ColorID:        variant.ColorID,
		SizeID:         variant.SizeID,
		SKU:            variant.SKU,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := store.Totals(countryParam(r), decimal.Zero)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, newCartDTO(store.Lines(), summary))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets a line's quantity; zero removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := store.UpdateQuantity(r.PathValue("variantID"), req.Quantity); err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := store.Totals(countryParam(r), decimal.Zero)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newCartDTO(store.Lines(), summary))
}

// RemoveCartItem deletes a line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := store.Remove(r.PathValue("variantID")); err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := store.Totals(countryParam(r), decimal.Zero)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newCartDTO(store.Lines(), summary))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := store.Clear(); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
