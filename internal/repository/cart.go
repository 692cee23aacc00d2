package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecomstore/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT id, user_id, session_token, created_at, updated_at
		FROM carts
		WHERE user_id IS NOT DISTINCT FROM $1
		  AND session_token IS NOT DISTINCT FROM $2`

	insertCartSQL = `INSERT INTO carts (id, user_id, session_token)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	getCartLinesSQL = `SELECT id, cart_id, variant_id, product_id, product_name, quantity, unit_price, created_at
		FROM cart_lines WHERE cart_id = $1
		ORDER BY created_at, id`

	// The xmax = 0 expression is true only for freshly inserted rows, which
	// tells the caller whether a new line was created or an existing one
	// had its quantity bumped (keeping the original price snapshot).
	upsertCartLineSQL = `INSERT INTO cart_lines (id, cart_id, variant_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING (xmax = 0)`

	setCartLineQuantitySQL = `UPDATE cart_lines SET quantity = $3
		WHERE cart_id = $1 AND variant_id = $2`

	removeCartLineSQL = `DELETE FROM cart_lines
		WHERE cart_id = $1 AND variant_id = $2`

	deleteCartSQL = `DELETE FROM carts WHERE id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db querier
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(db querier) *CartRepository {
	return &CartRepository{db: db}
}

// NewCartRepositoryWithTx binds the repository to an open transaction.
func NewCartRepositoryWithTx(tx pgx.Tx) *CartRepository {
	return &CartRepository{db: tx}
}

// ownerArgs maps an Owner to the nullable (user_id, session_token) pair the
// cart queries expect.
func ownerArgs(owner cart.Owner) (userID, sessionToken *string) {
	if owner.UserID != "" {
		userID = &owner.UserID
	}
	if owner.SessionToken != "" {
		sessionToken = &owner.SessionToken
	}
	return userID, sessionToken
}

// GetOrCreate resolves the unique cart for the owner, inserting an empty
// one when absent. The insert races safely: ON CONFLICT DO NOTHING plus a
// re-read means concurrent callers converge on the same row.
func (r *CartRepository) GetOrCreate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	c, err := r.Get(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cart.ErrNotFound) {
		return nil, err
	}

	userID, sessionToken := ownerArgs(owner)
	if _, err := r.db.Exec(ctx, insertCartSQL, uuid.New(), userID, sessionToken); err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}

	return r.Get(ctx, owner)
}

// Get returns the owner's cart with its lines in insertion order.
func (r *CartRepository) Get(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	userID, sessionToken := ownerArgs(owner)
	rows, err := r.db.Query(ctx, getCartSQL, userID, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart: %w", err)
	}

	lineRows, err := r.db.Query(ctx, getCartLinesSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("getting cart lines: %w", err)
	}
	c.Lines, err = pgx.CollectRows(lineRows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("getting cart lines: %w", err)
	}

	return &c, nil
}

// UpsertLine inserts the line or bumps the quantity of an existing line for
// the same variant, reporting whether a new row was created. The price
// snapshot of an existing line is never overwritten.
func (r *CartRepository) UpsertLine(ctx context.Context, cartID uuid.UUID, line cart.Line) (bool, error) {
	var created bool
	err := r.db.QueryRow(ctx, upsertCartLineSQL,
		line.ID, cartID, line.VariantID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting cart line: %w", err)
	}

	return created, r.touch(ctx, cartID)
}

// SetLineQuantity overwrites the quantity of an existing line.
func (r *CartRepository) SetLineQuantity(ctx context.Context, cartID uuid.UUID, variantID string, quantity int) error {
	tag, err := r.db.Exec(ctx, setCartLineQuantitySQL, cartID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart line quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, cartID)
}

// RemoveLine deletes the line for the variant, reporting whether a row was
// deleted. Repeated removal is safe.
func (r *CartRepository) RemoveLine(ctx context.Context, cartID uuid.UUID, variantID string) (bool, error) {
	tag, err := r.db.Exec(ctx, removeCartLineSQL, cartID, variantID)
	if err != nil {
		return false, fmt.Errorf("removing cart line: %w", err)
	}
	if err := r.touch(ctx, cartID); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the cart; its lines cascade. A zero-row delete means a
// concurrent checkout consumed the cart first and surfaces cart.ErrConflict
// so the losing transaction rolls back.
func (r *CartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteCartSQL, cartID)
	if err != nil {
		return fmt.Errorf("deleting cart %q: %w", cartID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrConflict
	}
	return nil
}

func (r *CartRepository) touch(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, touchCartSQL, cartID); err != nil {
		return fmt.Errorf("touching cart %q: %w", cartID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c            cart.Cart
		userID       *string
		sessionToken *string
	)
	err := row.Scan(&c.ID, &userID, &sessionToken, &c.CreatedAt, &c.UpdatedAt)
	if userID != nil {
		c.Owner.UserID = *userID
	}
	if sessionToken != nil {
		c.Owner.SessionToken = *sessionToken
	}
	return c, err
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.CartID, &l.VariantID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.CreatedAt)
	return l, err
}
