package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not exist.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrNoVariantAvailable is returned when a product has no active,
	// in-stock variant to purchase.
	ErrNoVariantAvailable = errors.New("no purchasable variant available")
)

// Product represents a catalog item. Pricing lives on its variants.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Category    string
}

// Variant is a purchasable configuration of a product (size, color, ...)
// with its own price and stock level.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	SKU         string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
}

// Purchasable reports whether the variant can currently be added to a cart.
func (v Variant) Purchasable() bool {
	return v.IsActive && v.Stock > 0
}

// Repository defines read operations for the product catalog. The catalog is
// an external collaborator: the storefront core only ever reads from it.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	// FirstAvailableVariant returns the first purchasable variant of the
	// given product, or ErrNoVariantAvailable when none exists.
	FirstAvailableVariant(ctx context.Context, productID string) (*Variant, error)
}
