package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ecomstore/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT p.id, p.name, p.slug, p.description, COALESCE(c.name, '')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.name`

	getProductSQL = `SELECT p.id, p.name, p.slug, p.description, COALESCE(c.name, '')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`

	getVariantSQL = `SELECT v.id, v.product_id, p.name, COALESCE(v.sku, ''), v.price, v.stock, v.is_active
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`

	firstAvailableVariantSQL = `SELECT v.id, v.product_id, p.name, COALESCE(v.sku, ''), v.price, v.stock, v.is_active
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.product_id = $1 AND v.is_active AND v.stock > 0
		ORDER BY v.id
		LIMIT 1`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements the read-only catalog.Repository backed by
// PostgreSQL.
type CatalogRepository struct {
	db querier
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(db querier) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListProducts returns all catalog products ordered by name.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single product by its identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetVariant returns a single variant with its product name.
func (r *CatalogRepository) GetVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.db.Query(ctx, getVariantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// FirstAvailableVariant returns the product's first purchasable variant.
// It distinguishes a missing product from one with nothing purchasable.
func (r *CatalogRepository) FirstAvailableVariant(ctx context.Context, productID string) (*catalog.Variant, error) {
	rows, err := r.db.Query(ctx, firstAvailableVariantSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting available variant for product %q: %w", productID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting available variant for product %q: %w", productID, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, productExistsSQL, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking product %q: %w", productID, err)
	}
	if !exists {
		return nil, catalog.ErrProductNotFound
	}
	return nil, catalog.ErrNoVariantAvailable
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &v.Price, &v.Stock, &v.IsActive)
	return v, err
}
