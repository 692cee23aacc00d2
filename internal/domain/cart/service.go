package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/ecomstore/storefront/internal/domain/catalog"
)

// Service implements the cart operations exposed to handlers: resolving the
// owner's cart and mutating its lines against authoritative catalog pricing.
type Service struct {
	carts   Repository
	catalog catalog.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, catalog catalog.Repository) *Service {
	return &Service{carts: carts, catalog: catalog}
}

// Fetch returns the owner's cart, creating an empty one lazily.
func (s *Service) Fetch(ctx context.Context, owner Owner) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	c, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	return c, nil
}

// AddProduct adds the product's first purchasable variant to the owner's
// cart. When a line for that variant already exists its quantity is
// incremented in place and the price snapshot is kept; otherwise a new line
// is created with the variant's current catalog price.
func (s *Service) AddProduct(ctx context.Context, owner Owner, productID string, quantity int) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}

	variant, err := s.catalog.FirstAvailableVariant(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve variant")
	}

	c, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}

	line := Line{
		ID:          uuid.New(),
		CartID:      c.ID,
		VariantID:   variant.ID,
		ProductID:   variant.ProductID,
		ProductName: variant.ProductName,
		Quantity:    quantity,
		UnitPrice:   variant.Price,
	}
	if _, err := s.carts.UpsertLine(ctx, c.ID, line); err != nil {
		return nil, errors.Wrap(err, "upsert line")
	}

	return s.carts.Get(ctx, owner)
}

// UpdateQuantity overwrites the quantity of an existing line. A quantity of
// zero or less is equivalent to removing the line.
func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, variantID string, quantity int) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return s.Remove(ctx, owner, variantID)
	}

	c, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	if err := s.carts.SetLineQuantity(ctx, c.ID, variantID, quantity); err != nil {
		return nil, err
	}

	return s.carts.Get(ctx, owner)
}

// Remove deletes the line for the variant. Removing a line that is already
// gone reports ErrLineNotFound so the caller can show a notice, but the
// cart is left in a consistent state either way.
func (s *Service) Remove(ctx context.Context, owner Owner, variantID string) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}

	deleted, err := s.carts.RemoveLine(ctx, c.ID, variantID)
	if err != nil {
		return nil, errors.Wrap(err, "remove line")
	}

	c, err = s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return c, ErrLineNotFound
	}
	return c, nil
}
