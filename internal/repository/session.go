package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/checkout"
)

const (
	setPendingOrderSQL = `INSERT INTO checkout_sessions (owner_key, order_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_key)
		DO UPDATE SET order_id = EXCLUDED.order_id, created_at = now()`

	getPendingOrderSQL = `SELECT order_id FROM checkout_sessions WHERE owner_key = $1`

	clearSessionSQL = `DELETE FROM checkout_sessions WHERE owner_key = $1`
)

var _ checkout.SessionStore = (*SessionRepository)(nil)

// SessionRepository implements checkout.SessionStore backed by PostgreSQL,
// correlating an owner with the pending order its checkout produced.
type SessionRepository struct {
	db querier
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(db querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// NewSessionRepositoryWithTx binds the repository to an open transaction.
func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// ownerKey flattens an Owner into the single-column session key. The prefix
// keeps user IDs and session tokens from colliding.
func ownerKey(owner cart.Owner) string {
	if owner.Anonymous() {
		return "session:" + owner.SessionToken
	}
	return "user:" + owner.UserID
}

// SetPendingOrder records (or replaces) the owner's pending order.
func (r *SessionRepository) SetPendingOrder(ctx context.Context, owner cart.Owner, orderID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, setPendingOrderSQL, ownerKey(owner), orderID); err != nil {
		return fmt.Errorf("recording checkout session: %w", err)
	}
	return nil
}

// PendingOrder returns the order awaiting payment for the owner.
func (r *SessionRepository) PendingOrder(ctx context.Context, owner cart.Owner) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := r.db.QueryRow(ctx, getPendingOrderSQL, ownerKey(owner)).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, checkout.ErrNoPendingOrder
		}
		return uuid.Nil, fmt.Errorf("getting checkout session: %w", err)
	}
	return orderID, nil
}

// Clear drops the owner's checkout-session correlation.
func (r *SessionRepository) Clear(ctx context.Context, owner cart.Owner) error {
	if _, err := r.db.Exec(ctx, clearSessionSQL, ownerKey(owner)); err != nil {
		return fmt.Errorf("clearing checkout session: %w", err)
	}
	return nil
}
