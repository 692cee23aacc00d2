package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type wishlistItemResponse struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	AddedAt     time.Time `json:"added_at"`
}

// ListWishlist returns the authenticated user's saved products.
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "sign in to use the wishlist")
		return
	}

	items, err := h.wishlists.List(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]wishlistItemResponse, len(items))
	for i, item := range items {
		resp[i] = wishlistItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			AddedAt:     item.AddedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// AddWishlistItem saves a product; saving it twice is a no-op.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "sign in to use the wishlist")
		return
	}
	productID := chi.URLParam(r, "productID")

	// Keep missing products a 404 instead of a foreign key violation.
	if _, err := h.catalog.GetProduct(r.Context(), productID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.wishlists.Add(r.Context(), userID, productID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveWishlistItem deletes a saved product.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "sign in to use the wishlist")
		return
	}

	removed, err := h.wishlists.Remove(r.Context(), userID, chi.URLParam(r, "productID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "product is not in your wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
