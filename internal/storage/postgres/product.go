package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopledger/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// LoadAll returns every product in insertion order.
func (r *ProductRepository) LoadAll(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT reference, name, unit_price, stock FROM products ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		var p product.Product
		err := row.Scan(&p.Reference, &p.Name, &p.UnitPrice, &p.Stock)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}

	return products, nil
}

// SaveAll replaces the stored catalog with products.
func (r *ProductRepository) SaveAll(ctx context.Context, products []product.Product) error {
	return replace(ctx, r.pool, "products", func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"products"},
			[]string{"position", "reference", "name", "unit_price", "stock"},
			pgx.CopyFromSlice(len(products), func(i int) ([]any, error) {
				p := products[i]
				return []any{i, p.Reference, p.Name, p.UnitPrice, p.Stock}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying products: %w", err)
		}
		return nil
	})
}
