// Package jsonfile persists products, clients, and orders as flat JSON files
// compatible with the historical data directory layout:
//
//	<dir>/produits.json
//	<dir>/clients.json
//	<dir>/commandes.json
//
// A missing file loads as an empty collection. A malformed file is moved
// aside (suffix ".corrupt-<timestamp>") and loads as empty, so the next save
// cannot overwrite the only copy. Records that parse but violate domain rules
// are skipped with a warning.
package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/domain/product"
)

// File names inside the data directory.
const (
	ProductsFile = "produits.json"
	ClientsFile  = "clients.json"
	OrdersFile   = "commandes.json"
)

// Store is the root of a JSON data directory.
type Store struct {
	dir string
	lg  *zap.Logger
	now func() time.Time
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string, lg *zap.Logger) *Store {
	return &Store{dir: dir, lg: lg, now: time.Now}
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// Clients returns the client repository.
func (s *Store) Clients() *ClientRepository {
	return &ClientRepository{s: s}
}

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ client.Repository  = (*ClientRepository)(nil)
	_ order.Repository   = (*OrderRepository)(nil)
)

// ProductRepository implements product.Repository on produits.json.
type ProductRepository struct{ s *Store }

// LoadAll reads every product.
func (r *ProductRepository) LoadAll(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	err := r.s.load(ctx, ProductsFile, func(d *jx.Decoder, skip skipFunc) (err error) {
		out, err = decodeProducts(d, skip)
		return err
	})
	return out, err
}

// SaveAll replaces produits.json with products.
func (r *ProductRepository) SaveAll(ctx context.Context, products []product.Product) error {
	return r.s.save(ctx, ProductsFile, func(e *jx.Encoder) { encodeProducts(e, products) })
}

// ClientRepository implements client.Repository on clients.json.
type ClientRepository struct{ s *Store }

// LoadAll reads every client.
func (r *ClientRepository) LoadAll(ctx context.Context) ([]client.Client, error) {
	var out []client.Client
	err := r.s.load(ctx, ClientsFile, func(d *jx.Decoder, skip skipFunc) (err error) {
		out, err = decodeClients(d, skip)
		return err
	})
	return out, err
}

// SaveAll replaces clients.json with clients.
func (r *ClientRepository) SaveAll(ctx context.Context, clients []client.Client) error {
	return r.s.save(ctx, ClientsFile, func(e *jx.Encoder) { encodeClients(e, clients) })
}

// OrderRepository implements order.Repository on commandes.json.
type OrderRepository struct{ s *Store }

// LoadAll reads every order. Totals are returned as stored; reconciling them
// with the lines is the order book's job.
func (r *OrderRepository) LoadAll(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	err := r.s.load(ctx, OrdersFile, func(d *jx.Decoder, skip skipFunc) (err error) {
		out, err = decodeOrders(d, skip)
		return err
	})
	return out, err
}

// SaveAll replaces commandes.json with orders.
func (r *OrderRepository) SaveAll(ctx context.Context, orders []order.Order) error {
	return r.s.save(ctx, OrdersFile, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

func (s *Store) load(ctx context.Context, name string, decode func(d *jx.Decoder, skip skipFunc) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "read %s", path)
	}

	skip := func(err error) {
		s.lg.Warn("Skipping invalid record", zap.String("file", name), zap.Error(err))
	}
	if err := decode(jx.DecodeBytes(data), skip); err != nil {
		quarantined := path + ".corrupt-" + s.now().Format("20060102-150405")
		s.lg.Warn("Data file is corrupt, starting with an empty collection",
			zap.String("file", path),
			zap.String("moved_to", quarantined),
			zap.Error(err),
		)
		if err := os.Rename(path, quarantined); err != nil {
			return errors.Wrapf(err, "move aside corrupt %s", path)
		}
		return nil
	}
	return nil
}

func (s *Store) save(ctx context.Context, name string, encode func(e *jx.Encoder)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}

	var e jx.Encoder
	e.SetIdent(indent)
	encode(&e)

	return writeAtomic(filepath.Join(s.dir, name), e.Bytes())
}

// writeAtomic writes data to a temp file next to path and renames it over
// path, so readers never observe a half-written file.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", path)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
