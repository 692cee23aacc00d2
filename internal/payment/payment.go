// Package payment defines the contract the storefront core has with the
// external payment gateway: initialize a remote payment intent for an order,
// then verify its outcome by the opaque reference the gateway calls back
// with. The remote service itself is out of scope.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrGatewayUnavailable is returned when the gateway cannot be reached or
// responds with a non-success status. The caller surfaces it without
// mutating any order state; retry is user-initiated.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// statusSuccess is the only verification status the core trusts. Absence of
// an error is not sufficient.
const statusSuccess = "success"

// InitializeRequest carries what the gateway needs to mint a payment intent.
type InitializeRequest struct {
	Email       string
	AmountMinor int64
	CallbackURL string
	OrderID     string
}

// InitializeResult is the gateway's opaque redirect target for the customer.
type InitializeResult struct {
	AuthorizationURL string
	Reference        string
}

// VerifyResult is the gateway's answer for a transaction reference.
type VerifyResult struct {
	Status      string
	AmountMinor int64
	OrderID     string
}

// Succeeded reports whether the gateway explicitly confirmed the payment.
func (r VerifyResult) Succeeded() bool {
	return r.Status == statusSuccess
}

// Gateway abstracts the remote payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// MinorUnits converts an amount to the gateway's minor currency unit
// (e.g. 450.00 NGN → 45000 kobo), using the currency's standard digit count.
func MinorUnits(amount decimal.Decimal, unit currency.Unit) int64 {
	scale, _ := currency.Cash.Rounding(unit)
	return amount.Shift(int32(scale)).IntPart()
}
