package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecomstore/storefront/internal/domain/checkout"
	"github.com/ecomstore/storefront/internal/domain/order"
)

type addressPayload struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

func (a addressPayload) toDomain() order.Address {
	return order.Address{
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

func toAddressPayload(a order.Address) addressPayload {
	return addressPayload{
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

type beginCheckoutRequest struct {
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Shipping       addressPayload `json:"shipping_address"`
	SameAsShipping bool           `json:"same_as_shipping"`
	Billing        addressPayload `json:"billing_address"`
}

type orderLineResponse struct {
	ProductID   *string         `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone,omitempty"`
	ShippingAddress addressPayload      `json:"shipping_address"`
	BillingAddress  addressPayload      `json:"billing_address"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	TransactionID   *string             `json:"transaction_id,omitempty"`
	Items           []orderLineResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Total:       l.Total(),
		}
	}
	return orderResponse{
		ID:              o.ID.String(),
		Status:          o.Status.String(),
		FirstName:       o.FirstName,
		LastName:        o.LastName,
		Email:           o.Email,
		Phone:           o.Phone,
		ShippingAddress: toAddressPayload(o.ShippingAddress),
		BillingAddress:  toAddressPayload(o.BillingAddress),
		TotalPrice:      o.TotalPrice,
		TransactionID:   o.TransactionID,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

// BeginCheckout converts the owner's cart into a pending order.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var req beginCheckoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.checkout.Begin(r.Context(), owner, checkout.CustomerInfo{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Shipping:       req.Shipping.toDomain(),
		SameAsShipping: req.SameAsShipping,
		Billing:        req.Billing.toDomain(),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

type initializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// InitializePayment asks the gateway for a redirect URL for the owner's
// pending order.
func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	redirectURL, err := h.checkout.InitializePayment(r.Context(), owner)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, initializePaymentResponse{AuthorizationURL: redirectURL})
}

// ConfirmPayment is the gateway's redirect callback target. The reference
// query parameter identifies the transaction to verify.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	reference := r.URL.Query().Get("reference")
	o, err := h.checkout.ConfirmPayment(r.Context(), owner, reference)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
