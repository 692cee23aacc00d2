package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ecomstore/storefront/internal/domain/cart"
	"github.com/ecomstore/storefront/internal/domain/catalog"
	"github.com/ecomstore/storefront/internal/domain/checkout"
	"github.com/ecomstore/storefront/internal/domain/order"
	"github.com/ecomstore/storefront/internal/payment"
)

type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors onto HTTP statuses. Unknown errors
// are logged and collapse into a plain 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "validation failed",
			Fields:  vErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, cart.ErrAmbiguousOwner):
		respondError(w, http.StatusBadRequest, "a user or session identity is required")
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, checkout.ErrNoPendingOrder):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrNoVariantAvailable):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrConflict),
		errors.Is(err, order.ErrStatusConflict),
		errors.Is(err, order.ErrIllegalTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrPaymentNotConfirmed):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		respondError(w, http.StatusBadGateway, "payment gateway unavailable, please retry")
	default:
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
