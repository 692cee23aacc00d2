// Package wishlist holds saved products for authenticated users.
package wishlist

import (
	"context"
	"time"
)

// Item is one saved product. A user saves a given product at most once.
type Item struct {
	UserID      string
	ProductID   string
	ProductName string
	AddedAt     time.Time
}

// Repository defines persistence operations for wishlists.
type Repository interface {
	// Add saves the product for the user. Saving an already-saved product
	// is a no-op.
	Add(ctx context.Context, userID, productID string) error
	// Remove deletes the saved product and reports whether a row existed.
	Remove(ctx context.Context, userID, productID string) (bool, error)
	// List returns the user's saved products, most recently added first.
	List(ctx context.Context, userID string) ([]Item, error)
}
