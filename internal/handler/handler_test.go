package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/catalog"
	"github.com/ecomstore/storefront/internal/domain/checkout"
	"github.com/ecomstore/storefront/internal/domain/order"
	"github.com/ecomstore/storefront/internal/domain/wishlist"
	"github.com/ecomstore/storefront/internal/payment"
)

// --- In-memory fakes ---

type fakeCatalog struct {
	products map[string]*catalog.Product
	variants map[string]*catalog.Variant // keyed by product ID
}

func (f *fakeCatalog) ListProducts(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetVariant(_ context.Context, id string) (*catalog.Variant, error) {
	for _, v := range f.variants {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, catalog.ErrVariantNotFound
}

func (f *fakeCatalog) FirstAvailableVariant(_ context.Context, productID string) (*catalog.Variant, error) {
	v, ok := f.variants[productID]
	if !ok {
		if _, exists := f.products[productID]; exists {
			return nil, catalog.ErrNoVariantAvailable
		}
		return nil, catalog.ErrProductNotFound
	}
	if !v.Purchasable() {
		return nil, catalog.ErrNoVariantAvailable
	}
	return v, nil
}

type fakeCartRepo struct {
	byOwner map[string]*cart.Cart
}

func ownerKey(o cart.Owner) string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionToken
}

func (f *fakeCartRepo) GetOrCreate(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	if c, ok := f.byOwner[ownerKey(owner)]; ok {
		return c, nil
	}
	c := &cart.Cart{ID: uuid.New(), Owner: owner}
	f.byOwner[ownerKey(owner)] = c
	return c, nil
}

func (f *fakeCartRepo) Get(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	c, ok := f.byOwner[ownerKey(owner)]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (f *fakeCartRepo) UpsertLine(_ context.Context, cartID uuid.UUID, line cart.Line) (bool, error) {
	c := f.byID(cartID)
	for i := range c.Lines {
		if c.Lines[i].VariantID == line.VariantID {
			c.Lines[i].Quantity += line.Quantity
			return false, nil
		}
	}
	c.Lines = append(c.Lines, line)
	return true, nil
}

func (f *fakeCartRepo) SetLineQuantity(_ context.Context, cartID uuid.UUID, variantID string, quantity int) error {
	c := f.byID(cartID)
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			c.Lines[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (f *fakeCartRepo) RemoveLine(_ context.Context, cartID uuid.UUID, variantID string) (bool, error) {
	c := f.byID(cartID)
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCartRepo) Delete(_ context.Context, cartID uuid.UUID) error {
	for key, c := range f.byOwner {
		if c.ID == cartID {
			delete(f.byOwner, key)
		}
	}
	return nil
}

func (f *fakeCartRepo) byID(cartID uuid.UUID) *cart.Cart {
	for _, c := range f.byOwner {
		if c.ID == cartID {
			return c
		}
	}
	return &cart.Cart{ID: cartID}
}

type fakeOrderRepo struct {
	byID map[uuid.UUID]*order.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	cp := *o
	f.byID[o.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetByTransactionID(_ context.Context, transactionID string) (*order.Order, error) {
	for _, o := range f.byID {
		if o.TransactionID != nil && *o.TransactionID == transactionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.byID {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to order.Status, transactionID *string) error {
	o, ok := f.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrStatusConflict
	}
	o.Status = to
	if transactionID != nil {
		o.TransactionID = transactionID
	}
	return nil
}

type fakeSessions struct {
	pending map[string]uuid.UUID
}

func (f *fakeSessions) SetPendingOrder(_ context.Context, owner cart.Owner, orderID uuid.UUID) error {
	f.pending[ownerKey(owner)] = orderID
	return nil
}

func (f *fakeSessions) PendingOrder(_ context.Context, owner cart.Owner) (uuid.UUID, error) {
	id, ok := f.pending[ownerKey(owner)]
	if !ok {
		return uuid.Nil, checkout.ErrNoPendingOrder
	}
	return id, nil
}

func (f *fakeSessions) Clear(_ context.Context, owner cart.Owner) error {
	delete(f.pending, ownerKey(owner))
	return nil
}

type fakeUOW struct {
	repos checkout.Repos
}

func (f *fakeUOW) Do(_ context.Context, fn func(tx checkout.Repos) error) error {
	return fn(f.repos)
}

type fakeGateway struct {
	initResult   *payment.InitializeResult
	initErr      error
	verifyResult *payment.VerifyResult
	verifyErr    error
}

func (f *fakeGateway) Initialize(_ context.Context, _ payment.InitializeRequest) (*payment.InitializeResult, error) {
	return f.initResult, f.initErr
}

func (f *fakeGateway) Verify(_ context.Context, _ string) (*payment.VerifyResult, error) {
	return f.verifyResult, f.verifyErr
}

type fakeWishlist struct {
	items map[string][]wishlist.Item // keyed by user ID
}

func (f *fakeWishlist) Add(_ context.Context, userID, productID string) error {
	for _, item := range f.items[userID] {
		if item.ProductID == productID {
			return nil
		}
	}
	f.items[userID] = append(f.items[userID], wishlist.Item{
		UserID:    userID,
		ProductID: productID,
		AddedAt:   time.Now(),
	})
	return nil
}

func (f *fakeWishlist) Remove(_ context.Context, userID, productID string) (bool, error) {
	items := f.items[userID]
	for i, item := range items {
		if item.ProductID == productID {
			f.items[userID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWishlist) List(_ context.Context, userID string) ([]wishlist.Item, error) {
	return f.items[userID], nil
}

// --- Test server ---

type testServer struct {
	router  http.Handler
	gateway *fakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat := &fakeCatalog{
		products: map[string]*catalog.Product{
			"p1": {ID: "p1", Name: "Widget", Slug: "widget", Category: "tools"},
			"p2": {ID: "p2", Name: "Gadget", Slug: "gadget", Category: "tools"},
		},
		variants: map[string]*catalog.Variant{
			"p1": {ID: "v1", ProductID: "p1", ProductName: "Widget", Price: decimal.RequireFromString("10.00"), Stock: 5, IsActive: true},
			"p2": {ID: "v2", ProductID: "p2", ProductName: "Gadget", Price: decimal.RequireFromString("5.50"), Stock: 0, IsActive: true},
		},
	}
	carts := &fakeCartRepo{byOwner: make(map[string]*cart.Cart)}
	orders := &fakeOrderRepo{byID: make(map[uuid.UUID]*order.Order)}
	sessions := &fakeSessions{pending: make(map[string]uuid.UUID)}
	gateway := &fakeGateway{}
	uow := &fakeUOW{repos: checkout.Repos{Carts: carts, Orders: orders, Sessions: sessions}}

	cartSvc := cart.NewService(carts, cat)
	checkoutSvc := checkout.NewService(uow, orders, sessions, gateway, nil, currency.MustParseISO("NGN"), "https://shop.example.com/confirm")

	h := New(cat, cartSvc, checkoutSvc, &fakeWishlist{items: make(map[string][]wishlist.Item)})
	return &testServer{router: h.Routes(), gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const checkoutBody = `{
	"first_name": "Ada",
	"last_name": "Obi",
	"email": "ada@example.com",
	"phone": "+2348000000000",
	"shipping_address": {
		"line1": "12 Marina Rd",
		"city": "Lagos",
		"state": "LA",
		"zip_code": "100001",
		"country": "NG"
	},
	"same_as_shipping": true
}`

// --- Tests ---

func TestGetCart_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/cart", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCart_SessionToken(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Session-Token", "tok-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse[cartResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Total.IsZero())
}

func TestAddCartItem(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse[cartResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "v1", resp.Items[0].VariantID)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("20.00")))
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "nope", "quantity": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCartItem_OutOfStock(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p2", "quantity": 1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAddCartItem_BadBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", "u1", `{"quantity": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCartItem(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPut, "/cart/items/v1", "u1", `{"quantity": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse[cartResponse](t, rec)
	assert.Equal(t, 4, resp.Items[0].Quantity)

	// Zero removes the line.
	rec = s.do(t, http.MethodPut, "/cart/items/v1", "u1", `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse[cartResponse](t, rec)
	assert.Empty(t, resp.Items)
}

func TestRemoveCartItem_Absent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/cart/items/v1", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBeginCheckout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse[orderResponse](t, rec)
	assert.Equal(t, "pending", resp.Status)
	assert.True(t, resp.TotalPrice.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, resp.ShippingAddress, resp.BillingAddress)

	// The cart was consumed.
	rec = s.do(t, http.MethodGet, "/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cartResp := decodeResponse[cartResponse](t, rec)
	assert.Empty(t, cartResp.Items)
}

func TestBeginCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBeginCheckout_ValidationFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/checkout", "u1", `{"email": "bad"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse[errorResponse](t, rec)
	assert.Contains(t, resp.Fields, "first_name")
	assert.Equal(t, "enter a valid email address", resp.Fields["email"])
}

func TestPaymentFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	s.gateway.initResult = &payment.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/xyz",
		Reference:        "ref-1",
	}
	rec = s.do(t, http.MethodPost, "/checkout/payment", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	initResp := decodeResponse[initializePaymentResponse](t, rec)
	assert.Equal(t, "https://checkout.paystack.com/xyz", initResp.AuthorizationURL)

	s.gateway.verifyResult = &payment.VerifyResult{Status: "success"}
	rec = s.do(t, http.MethodGet, "/checkout/confirm?reference=ref-1", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	confirmed := decodeResponse[orderResponse](t, rec)
	assert.Equal(t, "submitted", confirmed.Status)
	require.NotNil(t, confirmed.TransactionID)
	assert.Equal(t, "ref-1", *confirmed.TransactionID)
}

func TestConfirmPayment_Failed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	s.gateway.verifyResult = &payment.VerifyResult{Status: "failed"}
	rec = s.do(t, http.MethodGet, "/checkout/confirm?reference=ref-1", "u1", "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestConfirmPayment_MissingReference(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/checkout/confirm", "u1", "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestInitializePayment_NoPendingOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/checkout/payment", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitializePayment_GatewayDown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	s.gateway.initErr = payment.ErrGatewayUnavailable
	rec = s.do(t, http.MethodPost, "/checkout/payment", "u1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decodeResponse[[]orderResponse](t, rec)
	require.Len(t, orders, 1)

	// Another user sees nothing.
	rec = s.do(t, http.MethodGet, "/orders", "u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	orders = decodeResponse[[]orderResponse](t, rec)
	assert.Empty(t, orders)
}

func TestGetOrder_HiddenFromOtherUsers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cart/items", "u1", `{"product_id": "p1", "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/checkout", "u1", checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeResponse[orderResponse](t, rec)

	rec = s.do(t, http.MethodGet, "/orders/"+created.ID, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders/"+created.ID, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders/not-a-uuid", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeResponse[[]productResponse](t, rec)
	assert.Len(t, products, 2)

	rec = s.do(t, http.MethodGet, "/products/p1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeResponse[productResponse](t, rec)
	assert.Equal(t, "Widget", p.Name)

	rec = s.do(t, http.MethodGet, "/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWishlist(t *testing.T) {
	s := newTestServer(t)

	// Requires authentication.
	rec := s.do(t, http.MethodGet, "/wishlist", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/wishlist/p1", "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Saving twice is a no-op.
	rec = s.do(t, http.MethodPost, "/wishlist/p1", "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/wishlist", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeResponse[[]wishlistItemResponse](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)

	rec = s.do(t, http.MethodDelete, "/wishlist/p1", "u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/wishlist/p1", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddWishlistItem_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/wishlist/nope", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
