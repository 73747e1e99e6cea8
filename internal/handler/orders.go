package handler

import (
	"net/http"

	"github.com/tmarchant/vesper/internal/domain"
)

// GetOrder returns one order with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newOrderDTO(o))
}

// GetTransitions returns the legal next statuses for the order. The UI
// builds its action menu from this, never from its own copy of the rules.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	next := domain.NextStatuses(o.Status)
	statuses := make([]string, 0, len(next))
	for _, s := range next {
		statuses = append(statuses, string(s))
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"status":      string(o.Status),
		"terminal":    domain.IsTerminal(o.Status),
		"transitions": statuses,
	})
}

type transitionRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
	Notes          string `json:"notes"`
}

// TransitionOrder applies a lifecycle transition. Shipping requires
// tracking details and carries them onto the order.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	id := r.PathValue("id")
	var updated *domain.Order
	if target == domain.StatusShipped {
		updated, err = h.lifecycle.MarkShipped(r.Context(), id, req.TrackingNumber, req.Carrier, req.Notes)
	} else {
		updated, err = h.lifecycle.Transition(r.Context(), id, target)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newOrderDTO(updated))
}
