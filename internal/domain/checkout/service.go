package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/order"
	"github.com/ecomstore/storefront/internal/payment"
)

// Service orchestrates the cart → order conversion and the payment
// confirmation that follows.
type Service struct {
	uow      UnitOfWork
	orders   order.Repository
	sessions SessionStore
	gateway  payment.Gateway
	notifier Notifier

	currency    currency.Unit
	callbackURL string
}

// NewService creates a checkout Service. orders and sessions are the
// non-transactional views used outside Begin; the unit of work supplies
// transaction-bound counterparts inside it.
func NewService(
	uow UnitOfWork,
	orders order.Repository,
	sessions SessionStore,
	gateway payment.Gateway,
	notifier Notifier,
	cur currency.Unit,
	callbackURL string,
) *Service {
	return &Service{
		uow:         uow,
		orders:      orders,
		sessions:    sessions,
		gateway:     gateway,
		notifier:    notifier,
		currency:    cur,
		callbackURL: callbackURL,
	}
}

// Begin converts the owner's cart into a pending order in one atomic
// transaction: validate, snapshot every cart line into an order line,
// freeze the total, delete the cart, and record the order against the
// owner's checkout session. If any step fails nothing is persisted.
//
// Two concurrent checkouts of the same cart both pass the non-empty check
// at most once past the row deletes: the loser's transaction fails on
// commit and surfaces a conflict, it never produces a second order total.
func (s *Service) Begin(ctx context.Context, owner cart.Owner, info CustomerInfo) (*order.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if info.SameAsShipping {
		info.Billing = info.Shipping
	}

	var created *order.Order
	err := s.uow.Do(ctx, func(tx Repos) error {
		c, err := tx.Carts.Get(ctx, owner)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return ErrEmptyCart
			}
			return errors.Wrap(err, "load cart")
		}
		if c.Empty() {
			return ErrEmptyCart
		}

		o := &order.Order{
			ID:              uuid.New(),
			FirstName:       info.FirstName,
			LastName:        info.LastName,
			Email:           info.Email,
			Phone:           info.Phone,
			ShippingAddress: info.Shipping,
			BillingAddress:  info.Billing,
			TotalPrice:      c.Total(),
			Status:          order.StatusPending,
		}
		if !owner.Anonymous() {
			userID := owner.UserID
			o.UserID = &userID
		}

		for _, line := range c.Lines {
			productID := line.ProductID
			o.Lines = append(o.Lines, order.Line{
				ID:          uuid.New(),
				OrderID:     o.ID,
				ProductID:   &productID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
			})
		}

		if err := tx.Orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := tx.Carts.Delete(ctx, c.ID); err != nil {
			return errors.Wrap(err, "delete cart")
		}
		if err := tx.Sessions.SetPendingOrder(ctx, owner, o.ID); err != nil {
			return errors.Wrap(err, "record checkout session")
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// InitializePayment asks the gateway for a payment intent for the owner's
// pending order and returns the redirect URL. Order state is not touched;
// a gateway failure surfaces as payment.ErrGatewayUnavailable.
func (s *Service) InitializePayment(ctx context.Context, owner cart.Owner) (string, error) {
	if err := owner.Validate(); err != nil {
		return "", err
	}

	orderID, err := s.sessions.PendingOrder(ctx, owner)
	if err != nil {
		return "", err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", errors.Wrap(err, "load order")
	}

	result, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       o.Email,
		AmountMinor: payment.MinorUnits(o.TotalPrice, s.currency),
		CallbackURL: s.callbackURL,
		OrderID:     o.ID.String(),
	})
	if err != nil {
		return "", err
	}
	return result.AuthorizationURL, nil
}

// ConfirmPayment verifies the gateway reference and, only on an explicit
// success, moves the pending order to submitted, records the transaction
// reference, and clears the checkout-session correlation, all in one
// transaction. Any other verification outcome leaves the order untouched
// and reports ErrPaymentNotConfirmed.
//
// Confirmation is idempotent: once a confirm has cleared the session, a
// repeated callback with the same reference finds the submitted order by
// that reference and returns it unchanged, without re-verifying.
func (s *Service) ConfirmPayment(ctx context.Context, owner cart.Owner, reference string) (*order.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if reference == "" {
		return nil, ErrPaymentNotConfirmed
	}

	orderID, err := s.sessions.PendingOrder(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrNoPendingOrder) {
			return s.confirmedByReference(ctx, owner, reference)
		}
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}

	if o.Status == order.StatusSubmitted && o.TransactionID != nil && *o.TransactionID == reference {
		return o, nil
	}
	if !o.Status.CanTransitionTo(order.StatusSubmitted) {
		return nil, order.ErrIllegalTransition
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		return nil, ErrPaymentNotConfirmed
	}

	err = s.uow.Do(ctx, func(tx Repos) error {
		if err := tx.Orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusSubmitted, &reference); err != nil {
			return err
		}
		return tx.Sessions.Clear(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	confirmed, err := s.orders.GetByID(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	if s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, confirmed)
	}
	return confirmed, nil
}

// confirmedByReference resolves a repeated confirmation callback after the
// checkout session has been cleared. Only a submitted order carrying the
// exact reference and visible to the owner is returned.
func (s *Service) confirmedByReference(ctx context.Context, owner cart.Owner, reference string) (*order.Order, error) {
	o, err := s.orders.GetByTransactionID(ctx, reference)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, ErrNoPendingOrder
		}
		return nil, errors.Wrap(err, "load order by reference")
	}
	if o.Status != order.StatusSubmitted {
		return nil, ErrNoPendingOrder
	}
	if o.UserID != nil && (owner.Anonymous() || *o.UserID != owner.UserID) {
		return nil, ErrNoPendingOrder
	}
	return o, nil
}

// Order returns a single order for the order-history surface.
func (s *Service) Order(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// History returns the authenticated owner's past orders, newest first.
func (s *Service) History(ctx context.Context, owner cart.Owner) ([]order.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if owner.Anonymous() {
		return nil, nil
	}
	return s.orders.ListByUser(ctx, owner.UserID)
}
