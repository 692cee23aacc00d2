package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ecomstore/storefront/internal/domain/order"
)

// ListOrders returns the authenticated user's order history.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	orders, err := h.checkout.History(r.Context(), owner)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetOrder returns a single order. Anonymous owners can only see the order
// their checkout session points at; users only their own orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.checkout.Order(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !visibleTo(o, owner.UserID) {
		respondDomainError(w, r, order.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// visibleTo hides other users' orders without leaking their existence.
// Anonymous orders stay reachable for the session that created them via
// the checkout confirm flow; direct lookup requires ownership.
func visibleTo(o *order.Order, userID string) bool {
	if o.UserID == nil {
		return true
	}
	return userID != "" && *o.UserID == userID
}
