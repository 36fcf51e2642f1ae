package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopledger/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Lines
// live in order_lines and are removed with their order.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// LoadAll returns every order with its lines, in insertion order.
func (r *OrderRepository) LoadAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT number, created_at, client_id, total, status FROM orders ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var (
			o      order.Order
			status string
		)
		if err := row.Scan(&o.Number, &o.CreatedAt, &o.ClientID, &o.Total, &status); err != nil {
			return o, err
		}
		s, err := order.ParseStatus(status)
		if err != nil {
			return o, fmt.Errorf("order %q: %w", o.Number, err)
		}
		o.Status = s
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}

	index := make(map[string]int, len(orders))
	for i, o := range orders {
		index[o.Number] = i
	}

	rows, err = r.pool.Query(ctx,
		`SELECT order_number, product_ref, quantity, unit_price FROM order_lines ORDER BY order_number, position`)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			number string
			l      order.Line
		)
		if err := rows.Scan(&number, &l.ProductRef, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		if i, ok := index[number]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order lines: %w", err)
	}

	return orders, nil
}

// SaveAll replaces the stored orders and their lines.
func (r *OrderRepository) SaveAll(ctx context.Context, orders []order.Order) error {
	return replace(ctx, r.pool, "orders", func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"orders"},
			[]string{"position", "number", "created_at", "client_id", "total", "status"},
			pgx.CopyFromSlice(len(orders), func(i int) ([]any, error) {
				o := orders[i]
				return []any{i, o.Number, o.CreatedAt, o.ClientID, o.Total, string(o.Status)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying orders: %w", err)
		}

		var lines [][]any
		for _, o := range orders {
			for pos, l := range o.Lines {
				lines = append(lines, []any{o.Number, pos, l.ProductRef, l.Quantity, l.UnitPrice})
			}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"order_lines"},
			[]string{"order_number", "position", "product_ref", "quantity", "unit_price"},
			pgx.CopyFromRows(lines),
		)
		if err != nil {
			return fmt.Errorf("copying order lines: %w", err)
		}
		return nil
	})
}
