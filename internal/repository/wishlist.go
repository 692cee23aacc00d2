package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ecomstore/storefront/internal/domain/wishlist"
)

const (
	addWishlistItemSQL = `INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	removeWishlistItemSQL = `DELETE FROM wishlist_items
		WHERE user_id = $1 AND product_id = $2`

	listWishlistSQL = `SELECT w.user_id, w.product_id, p.name, w.added_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	db querier
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(db querier) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add saves the product for the user; already-saved products are a no-op.
func (r *WishlistRepository) Add(ctx context.Context, userID, productID string) error {
	if _, err := r.db.Exec(ctx, addWishlistItemSQL, userID, productID); err != nil {
		return fmt.Errorf("adding wishlist item: %w", err)
	}
	return nil
}

// Remove deletes the saved product, reporting whether a row existed.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.db.Exec(ctx, removeWishlistItemSQL, userID, productID)
	if err != nil {
		return false, fmt.Errorf("removing wishlist item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns the user's saved products, most recently added first.
func (r *WishlistRepository) List(ctx context.Context, userID string) ([]wishlist.Item, error) {
	rows, err := r.db.Query(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (wishlist.Item, error) {
		var item wishlist.Item
		err := row.Scan(&item.UserID, &item.ProductID, &item.ProductName, &item.AddedAt)
		return item, err
	})
}
