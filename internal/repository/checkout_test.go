package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/checkout"
	"github.com/ecomstore/storefront/internal/domain/order"
	"github.com/ecomstore/storefront/internal/repository"
)

type checkoutRepositorySuite struct {
	suite.Suite

	pool     *pgxpool.Pool
	uow      *repository.UnitOfWork
	carts    *repository.CartRepository
	orders   *repository.OrderRepository
	sessions *repository.SessionRepository
}

func TestCheckoutRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(checkoutRepositorySuite))
}

func (s *checkoutRepositorySuite) SetupSuite() {
	s.pool = newTestPool(s.T())
	s.uow = repository.NewUnitOfWork(s.pool)
	s.carts = repository.NewCartRepository(s.pool)
	s.orders = repository.NewOrderRepository(s.pool)
	s.sessions = repository.NewSessionRepository(s.pool)
}

func (s *checkoutRepositorySuite) TearDownTest() {
	ctx := s.T().Context()
	_, err := s.pool.Exec(ctx, `DELETE FROM carts`)
	s.Require().NoError(err)
	_, err = s.pool.Exec(ctx, `DELETE FROM orders`)
	s.Require().NoError(err)
}

func (s *checkoutRepositorySuite) pendingOrder(owner cart.Owner) *order.Order {
	o := &order.Order{
		ID:        uuid.New(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     gofakeit.Email(),
		ShippingAddress: order.Address{
			Line1: gofakeit.Street(), City: gofakeit.City(), State: gofakeit.StateAbr(),
			ZipCode: gofakeit.Zip(), Country: "US",
		},
		TotalPrice: decimal.RequireFromString("20.00"),
		Status:     order.StatusPending,
	}
	o.BillingAddress = o.ShippingAddress
	if !owner.Anonymous() {
		userID := owner.UserID
		o.UserID = &userID
	}
	return o
}

func (s *checkoutRepositorySuite) TestSessionStore() {
	t := s.T()
	ctx := t.Context()
	owner := cart.UserOwner(gofakeit.UUID())

	_, err := s.sessions.PendingOrder(ctx, owner)
	require.ErrorIs(t, err, checkout.ErrNoPendingOrder)

	o := s.pendingOrder(owner)
	require.NoError(t, s.orders.Create(ctx, o))
	require.NoError(t, s.sessions.SetPendingOrder(ctx, owner, o.ID))

	got, err := s.sessions.PendingOrder(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, o.ID, got)

	// A user and a session with the same raw identifier never collide.
	sessionOwner := cart.SessionOwner(owner.UserID)
	_, err = s.sessions.PendingOrder(ctx, sessionOwner)
	require.ErrorIs(t, err, checkout.ErrNoPendingOrder)

	require.NoError(t, s.sessions.Clear(ctx, owner))
	_, err = s.sessions.PendingOrder(ctx, owner)
	require.ErrorIs(t, err, checkout.ErrNoPendingOrder)
}

func (s *checkoutRepositorySuite) TestSessionStore_Replace() {
	t := s.T()
	ctx := t.Context()
	owner := cart.SessionOwner("tok-" + gofakeit.LetterN(8))

	first := s.pendingOrder(owner)
	second := s.pendingOrder(owner)
	require.NoError(t, s.orders.Create(ctx, first))
	require.NoError(t, s.orders.Create(ctx, second))

	require.NoError(t, s.sessions.SetPendingOrder(ctx, owner, first.ID))
	require.NoError(t, s.sessions.SetPendingOrder(ctx, owner, second.ID))

	got, err := s.sessions.PendingOrder(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, second.ID, got)
}

func (s *checkoutRepositorySuite) TestDo_CommitsAllWrites() {
	t := s.T()
	ctx := t.Context()
	owner := cart.UserOwner(gofakeit.UUID())

	c, err := s.carts.GetOrCreate(ctx, owner)
	require.NoError(t, err)
	_, variantID := seedVariant(t, s.pool, decimal.RequireFromString("10.00"), 5, true)
	_, err = s.carts.UpsertLine(ctx, c.ID, cart.Line{
		ID: uuid.New(), CartID: c.ID, VariantID: variantID,
		ProductID: gofakeit.UUID(), ProductName: gofakeit.ProductName(),
		Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	o := s.pendingOrder(owner)
	err = s.uow.Do(ctx, func(tx checkout.Repos) error {
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}
		if err := tx.Carts.Delete(ctx, c.ID); err != nil {
			return err
		}
		return tx.Sessions.SetPendingOrder(ctx, owner, o.ID)
	})
	require.NoError(t, err)

	_, err = s.carts.Get(ctx, owner)
	require.ErrorIs(t, err, cart.ErrNotFound)

	stored, err := s.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, stored.Status)

	pending, err := s.sessions.PendingOrder(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, o.ID, pending)
}

func (s *checkoutRepositorySuite) TestDo_RollsBackEverything() {
	t := s.T()
	ctx := t.Context()
	owner := cart.UserOwner(gofakeit.UUID())

	c, err := s.carts.GetOrCreate(ctx, owner)
	require.NoError(t, err)

	o := s.pendingOrder(owner)
	boom := errors.New("boom")
	err = s.uow.Do(ctx, func(tx checkout.Repos) error {
		if err := tx.Orders.Create(ctx, o); err != nil {
			return err
		}
		if err := tx.Carts.Delete(ctx, c.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the failed transaction is visible.
	_, err = s.orders.GetByID(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)

	got, err := s.carts.Get(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}
