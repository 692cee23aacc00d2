// Command seed-db loads catalog dumps into the database. Dumps are
// gzip-compressed JSON lines files (catalog*.json.gz), one product record
// per line, produced by the catalog export job. Files are parsed
// concurrently; variant SKUs already seen in an earlier record are skipped.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ecomstore/storefront/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

type categoryRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type variantRecord struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	IsActive bool            `json:"is_active"`
}

type productRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Category    *categoryRecord `json:"category"`
	Variants    []variantRecord `json:"variants"`
}

func main() {
	var (
		databaseURL string
		dataDir     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataDir, "data-dir", "db/seed", "directory containing catalog*.json.gz dumps")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dataDir); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataDir string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob catalog dumps")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog*.json.gz files in %s", dataDir)
	}
	sort.Strings(files)

	slog.Info("parsing catalog dumps", slog.Int("files", len(files)))

	products, err := parseDumps(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse catalog dumps")
	}

	slog.Info("catalog parsed", slog.Int("products", len(products)))

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeCatalog(ctx, pool, products); err != nil {
		return errors.Wrap(err, "write catalog")
	}

	return nil
}

// parseDumps reads all dump files concurrently and returns the product
// records in file order. Variants whose SKU was already claimed by an
// earlier record are dropped; the filter may rarely reject a fresh SKU as
// a duplicate, which only costs a re-run with that variant renamed.
func parseDumps(ctx context.Context, files []string) ([]productRecord, error) {
	perFile := make([][]productRecord, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseDumpFile(ctx, i, f, perFile))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seenSKUs := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var products []productRecord
	for i, recs := range perFile {
		for _, p := range recs {
			kept := p.Variants[:0]
			for _, v := range p.Variants {
				if v.SKU != "" && seenSKUs.TestString(v.SKU) {
					slog.Warn("skipping duplicate SKU",
						slog.String("file", files[i]),
						slog.String("product", p.ID),
						slog.String("sku", v.SKU),
					)
					continue
				}
				if v.SKU != "" {
					seenSKUs.AddString(v.SKU)
				}
				kept = append(kept, v)
			}
			p.Variants = kept
			products = append(products, p)
		}
	}

	return products, nil
}

func parseDumpFile(ctx context.Context, idx int, path string, out [][]productRecord) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var (
			records []productRecord
			line    int
		)
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var rec productRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return errors.Wrapf(err, "parse %s line %d", path, line)
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("dump parsed", slog.String("file", path), slog.Int("products", len(records)))

		out[idx] = records
		return nil
	}
}

const upsertCategorySQL = `
INSERT INTO categories (id, name, slug, description)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    description = EXCLUDED.description,
    updated_at = now()`

const upsertProductSQL = `
INSERT INTO products (id, category_id, name, slug, description)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    description = EXCLUDED.description,
    updated_at = now()`

const upsertVariantSQL = `
INSERT INTO product_variants (id, product_id, sku, price, stock, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    sku = EXCLUDED.sku,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    is_active = EXCLUDED.is_active`

// writeCatalog upserts categories, products, and variants. Each category is
// written once even when many products reference it.
func writeCatalog(ctx context.Context, pool *pgxpool.Pool, products []productRecord) error {
	slog.Info("writing catalog to database", slog.Int("products", len(products)))

	categoriesDone := make(map[string]struct{})
	var written int
	for _, p := range products {
		var categoryID *string
		if c := p.Category; c != nil {
			if _, done := categoriesDone[c.ID]; !done {
				if _, err := pool.Exec(ctx, upsertCategorySQL, c.ID, c.Name, c.Slug, c.Description); err != nil {
					return errors.Wrapf(err, "upsert category %s", c.ID)
				}
				categoriesDone[c.ID] = struct{}{}
			}
			categoryID = &c.ID
		}

		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, categoryID, p.Name, p.Slug, p.Description); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, upsertVariantSQL, v.ID, p.ID, v.SKU, v.Price, v.Stock, v.IsActive); err != nil {
				return errors.Wrapf(err, "upsert variant %s of product %s", v.ID, p.ID)
			}
		}

		written++
		if written%100 == 0 || written == len(products) {
			slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(products)))
		}
	}

	return nil
}
