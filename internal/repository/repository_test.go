package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ecomstore/storefront/internal/repository"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts("../../db/migrations/001_schema.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, connStr, err := startPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	pool, err := repository.NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// seedVariant inserts a product with one variant and returns their IDs.
func seedVariant(t *testing.T, pool *pgxpool.Pool, price decimal.Decimal, stock int, active bool) (productID, variantID string) {
	t.Helper()
	ctx := context.Background()

	productID = gofakeit.UUID()
	variantID = gofakeit.UUID()
	name := gofakeit.ProductName()

	_, err := pool.Exec(ctx,
		`INSERT INTO products (id, name, slug, description) VALUES ($1, $2, $3, $4)`,
		productID, name, gofakeit.UUID(), gofakeit.Sentence(6),
	)
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO product_variants (id, product_id, sku, price, stock, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		variantID, productID, gofakeit.UUID(), price, stock, active,
	)
	require.NoError(t, err)

	return productID, variantID
}
