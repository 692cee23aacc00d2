// Package notify delivers order confirmations to customers. The log
// implementation stands in for an email sender and records enough to
// reconstruct the receipt.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ecomstore/storefront/internal/domain/order"
)

// LogNotifier writes order confirmations to the request-scoped logger.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// OrderConfirmed logs the confirmed order receipt.
func (n *LogNotifier) OrderConfirmed(ctx context.Context, o *order.Order) {
	zctx.From(ctx).Info("order confirmed",
		zap.String("order_id", o.ID.String()),
		zap.String("email", o.Email),
		zap.String("total", o.TotalPrice.String()),
		zap.Int("lines", len(o.Lines)),
	)
}
