package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopledger/internal/domain/client"
)

var _ client.Repository = (*ClientRepository)(nil)

// ClientRepository implements client.Repository backed by PostgreSQL.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a ClientRepository that uses the given pool.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// LoadAll returns every client in insertion order. NULL phone and email read
// as empty strings.
func (r *ClientRepository) LoadAll(ctx context.Context) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, last_name, first_name, address, phone, email FROM clients ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}

	clients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (client.Client, error) {
		var (
			c            client.Client
			phone, email *string
		)
		if err := row.Scan(&c.ID, &c.LastName, &c.FirstName, &c.Address, &phone, &email); err != nil {
			return c, err
		}
		c.Phone = deref(phone)
		c.Email = deref(email)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning clients: %w", err)
	}

	return clients, nil
}

// SaveAll replaces the stored clients.
func (r *ClientRepository) SaveAll(ctx context.Context, clients []client.Client) error {
	return replace(ctx, r.pool, "clients", func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"clients"},
			[]string{"position", "id", "last_name", "first_name", "address", "phone", "email"},
			pgx.CopyFromSlice(len(clients), func(i int) ([]any, error) {
				c := clients[i]
				return []any{i, c.ID, c.LastName, c.FirstName, c.Address, nullable(c.Phone), nullable(c.Email)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying clients: %w", err)
		}
		return nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
