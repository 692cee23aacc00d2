package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/order"
)

var (
	// ErrEmptyCart is returned when checkout is attempted on a cart with no
	// lines. No order rows are written.
	ErrEmptyCart = errors.New("cart is empty, nothing to check out")
	// ErrNoPendingOrder is returned when no checkout is awaiting payment for
	// the owner.
	ErrNoPendingOrder = errors.New("no pending order for this session")
	// ErrPaymentNotConfirmed is returned when the gateway did not explicitly
	// confirm the payment. The order stays pending; retry is user-initiated.
	ErrPaymentNotConfirmed = errors.New("payment was not confirmed")
)

// ValidationError reports every missing or invalid checkout field, keyed by
// field name. All fields are checked, not just the first failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid checkout fields: %s", strings.Join(names, ", "))
}

// CustomerInfo is the customer contact and address input collected at
// checkout. Billing fields are only required when SameAsShipping is false;
// when it is true they are overwritten with the shipping address.
type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string

	Shipping order.Address

	SameAsShipping bool
	Billing        order.Address
}

const requiredMsg = "this field is required"

// Validate checks every required field and returns a *ValidationError
// listing all failures at once.
func (ci CustomerInfo) Validate() error {
	fields := map[string]string{}

	requireString(fields, "first_name", ci.FirstName)
	requireString(fields, "last_name", ci.LastName)
	requireString(fields, "email", ci.Email)
	if ci.Email != "" && !strings.Contains(ci.Email, "@") {
		fields["email"] = "enter a valid email address"
	}

	requireAddress(fields, "shipping", ci.Shipping)
	if !ci.SameAsShipping {
		requireAddress(fields, "billing", ci.Billing)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func requireString(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = requiredMsg
	}
}

// requireAddress checks the five required address fields; Line2 is optional.
func requireAddress(fields map[string]string, prefix string, a order.Address) {
	requireString(fields, prefix+"_address_line1", a.Line1)
	requireString(fields, prefix+"_city", a.City)
	requireString(fields, prefix+"_state", a.State)
	requireString(fields, prefix+"_zip_code", a.ZipCode)
	requireString(fields, prefix+"_country", a.Country)
}

// SessionStore correlates an owner's checkout session with the pending
// order it produced, so the gateway's redirect callback can find the order.
type SessionStore interface {
	SetPendingOrder(ctx context.Context, owner cart.Owner, orderID uuid.UUID) error
	// PendingOrder returns the order awaiting payment for the owner, or
	// ErrNoPendingOrder.
	PendingOrder(ctx context.Context, owner cart.Owner) (uuid.UUID, error)
	Clear(ctx context.Context, owner cart.Owner) error
}

// Repos is the transactional persistence surface handed to a unit of work.
// All repositories are bound to the same database transaction.
type Repos struct {
	Carts    cart.Repository
	Orders   order.Repository
	Sessions SessionStore
}

// UnitOfWork runs fn inside a single database transaction with
// rollback-on-any-error semantics: either every write fn performs becomes
// visible atomically, or none does.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Repos) error) error
}

// Notifier is the email/notification sink collaborator, told about orders
// whose payment was confirmed.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *order.Order)
}
