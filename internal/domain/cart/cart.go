package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAmbiguousOwner is returned when a cart owner carries both a user ID
	// and a session token, or neither.
	ErrAmbiguousOwner = errors.New("cart owner must be a user or a session, not both or neither")
	// ErrLineNotFound is returned when a cart line for the requested variant
	// does not exist. It is a user-facing notice, not a corruption signal.
	ErrLineNotFound = errors.New("item not found in cart")
	// ErrNotFound is returned when no cart exists for the given owner.
	ErrNotFound = errors.New("cart not found")
	// ErrConflict is returned when the cart changed under a concurrent
	// operation, for example two checkouts consuming the same cart. The
	// losing caller rolls back instead of double-writing.
	ErrConflict = errors.New("cart was modified concurrently")
)

// maxSessionTokenLen matches the session-token column width minted by the
// request infrastructure.
const maxSessionTokenLen = 40

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous session. Exactly one side is set. Callers resolve the owner
// explicitly from the request and pass it into every store call.
type Owner struct {
	UserID       string
	SessionToken string
}

// UserOwner returns an Owner for an authenticated user.
func UserOwner(userID string) Owner {
	return Owner{UserID: userID}
}

// SessionOwner returns an Owner for an anonymous session.
func SessionOwner(token string) Owner {
	return Owner{SessionToken: token}
}

// Validate checks the one-side-set invariant.
func (o Owner) Validate() error {
	switch {
	case o.UserID != "" && o.SessionToken != "":
		return ErrAmbiguousOwner
	case o.UserID == "" && o.SessionToken == "":
		return ErrAmbiguousOwner
	case len(o.SessionToken) > maxSessionTokenLen:
		return ErrAmbiguousOwner
	}
	return nil
}

// Anonymous reports whether the owner is an anonymous session.
func (o Owner) Anonymous() bool {
	return o.UserID == ""
}

// Line is a single cart entry for one variant. UnitPrice is a snapshot of
// the catalog price captured when the line was first created; later catalog
// price changes and quantity updates leave it untouched.
type Line struct {
	ID          uuid.UUID
	CartID      uuid.UUID
	VariantID   string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	CreatedAt   time.Time
}

// Total returns quantity × unit price snapshot.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the line items for one owner. At most one cart exists per
// owner; it is created lazily and deleted when an order is created from it.
type Cart struct {
	ID        uuid.UUID
	Owner     Owner
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums all line totals. An empty cart totals to zero.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Repository defines persistence operations for carts. Implementations keep
// lines unique per (cart, variant) and insertion-ordered, and bump the
// cart's updated_at on every mutating call.
type Repository interface {
	// GetOrCreate resolves the unique cart for the owner, creating an empty
	// one when absent.
	GetOrCreate(ctx context.Context, owner Owner) (*Cart, error)
	// Get returns the owner's cart with its lines, or ErrNotFound.
	Get(ctx context.Context, owner Owner) (*Cart, error)
	// UpsertLine increments quantity in place when a line for the variant
	// already exists (keeping its price snapshot), and inserts the given
	// line otherwise. It reports whether a new line was created.
	UpsertLine(ctx context.Context, cartID uuid.UUID, line Line) (bool, error)
	// SetLineQuantity overwrites the quantity of an existing line, leaving
	// the price snapshot untouched. Returns ErrLineNotFound when absent.
	SetLineQuantity(ctx context.Context, cartID uuid.UUID, variantID string, quantity int) error
	// RemoveLine deletes the line for the variant and reports whether a row
	// was deleted. Removing an absent line is not an error.
	RemoveLine(ctx context.Context, cartID uuid.UUID, variantID string) (bool, error)
	// Delete removes the cart and all of its lines. ErrConflict is
	// returned when the cart row is already gone, which under concurrent
	// checkouts means another transaction consumed it first.
	Delete(ctx context.Context, cartID uuid.UUID) error
}
