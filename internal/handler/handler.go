// Package handler exposes the storefront HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/catalog"
	"github.com/ecomstore/storefront/internal/domain/checkout"
	"github.com/ecomstore/storefront/internal/domain/wishlist"
)

// Handler holds the domain services the HTTP surface delegates to.
type Handler struct {
	catalog   catalog.Repository
	carts     *cart.Service
	checkout  *checkout.Service
	wishlists wishlist.Repository
}

// New constructs a Handler with the required domain dependencies.
func New(
	catalogRepo catalog.Repository,
	carts *cart.Service,
	checkoutSvc *checkout.Service,
	wishlists wishlist.Repository,
) *Handler {
	return &Handler{
		catalog:   catalogRepo,
		carts:     carts,
		checkout:  checkoutSvc,
		wishlists: wishlists,
	}
}

// Routes returns the API router. The caller mounts it under its prefix and
// wraps it with the shared middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddCartItem)
	r.Put("/cart/items/{variantID}", h.UpdateCartItem)
	r.Delete("/cart/items/{variantID}", h.RemoveCartItem)

	r.Post("/checkout", h.BeginCheckout)
	r.Post("/checkout/payment", h.InitializePayment)
	r.Get("/checkout/confirm", h.ConfirmPayment)

	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderID}", h.GetOrder)

	r.Get("/wishlist", h.ListWishlist)
	r.Post("/wishlist/{productID}", h.AddWishlistItem)
	r.Delete("/wishlist/{productID}", h.RemoveWishlistItem)

	return r
}

// ownerFromRequest builds the explicit cart owner from request identity:
// the upstream identity provider's X-User-ID header when authenticated,
// the opaque X-Session-Token otherwise. Services never resolve the owner
// implicitly; it is always passed in from here.
func ownerFromRequest(r *http.Request) (cart.Owner, error) {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return cart.UserOwner(userID), nil
	}
	if token := r.Header.Get("X-Session-Token"); token != "" {
		owner := cart.SessionOwner(token)
		return owner, owner.Validate()
	}
	return cart.Owner{}, cart.ErrAmbiguousOwner
}

// userFromRequest returns the authenticated user, for user-only surfaces
// like the wishlist.
func userFromRequest(r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	return userID, userID != ""
}
