package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecomstore/storefront/internal/domain/checkout"
)

var _ checkout.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork implements checkout.UnitOfWork on a pgx pool: every Do call
// opens one transaction, hands transaction-bound repositories to fn, and
// commits only when fn returns nil. Any error rolls everything back,
// including conflicts between concurrent checkouts of the same cart, so
// the loser surfaces the conflict instead of double-writing.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork backed by the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Do runs fn inside a single database transaction.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx checkout.Repos) error) (txErr error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("rollback: %w", rollbackErr))
			}
		}
	}()

	repos := checkout.Repos{
		Carts:    NewCartRepositoryWithTx(tx),
		Orders:   NewOrderRepositoryWithTx(tx),
		Sessions: NewSessionRepositoryWithTx(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
