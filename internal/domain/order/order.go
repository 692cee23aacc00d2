package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when a status update finds the order in
	// a different state than expected. The caller must re-fetch and decide.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrIllegalTransition is returned when the requested status change is
	// not permitted by the state machine.
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// Address is a postal address captured at checkout time.
type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	ZipCode string
	Country string
}

// Line is an immutable snapshot of one purchased variant. ProductID is a
// soft reference: it becomes nil if the catalog entry is later deleted,
// while the display fields keep the historical facts.
type Line struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Total returns quantity × unit price snapshot.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the immutable record of a completed checkout. Product, price and
// quantity facts on its lines never change after creation, independent of
// later cart or catalog edits. Only Status and TransactionID move, and only
// along the Status transition table.
type Order struct {
	ID     uuid.UUID
	UserID *string

	FirstName string
	LastName  string
	Email     string
	Phone     string

	ShippingAddress Address
	BillingAddress  Address

	TotalPrice    decimal.Decimal
	Status        Status
	TransactionID *string

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []Line
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and all of its lines.
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order with its lines, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetByTransactionID returns the order carrying the given gateway
	// transaction reference, or ErrNotFound. References are unique per
	// order, so repeated payment callbacks can find their order after the
	// checkout session is gone.
	GetByTransactionID(ctx context.Context, transactionID string) (*Order, error)
	// ListByUser returns the user's orders, most recent first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus moves the order from one status to another and records
	// the gateway transaction reference when given. The update is a
	// compare-and-set on the current status: ErrStatusConflict is returned
	// when the row is no longer in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, transactionID *string) error
}
