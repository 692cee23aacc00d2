package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecomstore/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		id, user_id, first_name, last_name, email, phone,
		shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_zip_code, shipping_country,
		billing_line1, billing_line2, billing_city, billing_state, billing_zip_code, billing_country,
		total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20)`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, position, product_id, product_name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectOrderSQL = `SELECT id, user_id, first_name, last_name, email, phone,
		shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_zip_code, shipping_country,
		billing_line1, billing_line2, billing_city, billing_state, billing_zip_code, billing_country,
		total_price, status, transaction_id, created_at, updated_at
		FROM orders`

	getOrderSQL = selectOrderSQL + ` WHERE id = $1`

	getOrderByTransactionSQL = selectOrderSQL + ` WHERE transaction_id = $1`

	listOrdersByUserSQL = selectOrderSQL + ` WHERE user_id = $1 ORDER BY created_at DESC`

	getOrderLinesSQL = `SELECT id, order_id, product_id, product_name, unit_price, quantity
		FROM order_lines WHERE order_id = ANY($1)
		ORDER BY position`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $3, transaction_id = COALESCE($4, transaction_id), updated_at = now()
		WHERE id = $1 AND status = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db querier
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db querier) *OrderRepository {
	return &OrderRepository{db: db}
}

// NewOrderRepositoryWithTx binds the repository to an open transaction.
func NewOrderRepositoryWithTx(tx pgx.Tx) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create persists the order and all of its line snapshots.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.FirstName, o.LastName, o.Email, o.Phone,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.ZipCode, o.ShippingAddress.Country,
		o.BillingAddress.Line1, o.BillingAddress.Line2, o.BillingAddress.City,
		o.BillingAddress.State, o.BillingAddress.ZipCode, o.BillingAddress.Country,
		o.TotalPrice, o.Status,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	// Line position preserves the purchase order the cart had.
	for i, line := range o.Lines {
		_, err := r.db.Exec(ctx, insertOrderLineSQL,
			line.ID, o.ID, i, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("creating order line %q: %w", line.ID, err)
		}
	}

	return nil
}

// GetByID returns the order with its lines, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachLines(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByTransactionID returns the order carrying the gateway transaction
// reference, or order.ErrNotFound.
func (r *OrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderByTransactionSQL, transactionID)
	if err != nil {
		return nil, fmt.Errorf("getting order by transaction %q: %w", transactionID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by transaction %q: %w", transactionID, err)
	}

	if err := r.attachLines(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders with lines, most recent first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus is a compare-and-set on the order's current status. A nil
// transactionID keeps the stored one.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status, transactionID *string) error {
	if !from.CanTransitionTo(to) {
		return order.ErrIllegalTransition
	}

	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, id, from, to, transactionID)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order vanished or its status moved under us.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return order.ErrStatusConflict
	}
	return nil
}

// attachLines loads line snapshots for all given orders in one query.
func (r *OrderRepository) attachLines(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, getOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("getting order lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return fmt.Errorf("getting order lines: %w", err)
	}

	for _, line := range lines {
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.FirstName, &o.LastName, &o.Email, &o.Phone,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&o.BillingAddress.Line1, &o.BillingAddress.Line2, &o.BillingAddress.City,
		&o.BillingAddress.State, &o.BillingAddress.ZipCode, &o.BillingAddress.Country,
		&o.TotalPrice, &o.Status, &o.TransactionID, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.UnitPrice, &l.Quantity)
	return l, err
}
