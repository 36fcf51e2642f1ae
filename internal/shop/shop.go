// Package shop is the application facade: it owns the in-memory state,
// exposes one method per user action, and moves that state to and from
// storage.
package shop

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/directory"
	"github.com/xenking/shopledger/internal/domain/inventory"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/domain/product"
	"github.com/xenking/shopledger/internal/receipt"
	"github.com/xenking/shopledger/internal/storage/jsonfile"
)

// ErrInvalidClient is returned when a new client has neither a last nor a
// first name.
var ErrInvalidClient = errors.New("client needs a last or first name")

// Storage groups the three repositories.
type Storage struct {
	Products product.Repository
	Clients  client.Repository
	Orders   order.Repository
}

// Backups writes full snapshots.
type Backups interface {
	WriteBackup(ctx context.Context, snap jsonfile.Snapshot) (string, error)
}

// Options configures a Shop.
type Options struct {
	Storage  Storage
	Receipts receipt.Sink
	Backups  Backups
	Logger   *zap.Logger
	Meter    metric.MeterProvider
}

// Shop holds products, clients, orders, and the stock journal.
type Shop struct {
	storage  Storage
	receipts receipt.Sink
	backups  Backups
	lg       *zap.Logger

	dir    *directory.Directory
	book   *order.Book
	ledger *inventory.Ledger
	orders *order.Service

	metrics *metrics
}

// New creates an empty Shop. Call Load to read stored state.
func New(opts Options) (*Shop, error) {
	m, err := newMetrics(opts.Meter)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	book := order.NewBook()
	dir := directory.New(book)
	ledger := inventory.NewLedger()

	return &Shop{
		storage:  opts.Storage,
		receipts: opts.Receipts,
		backups:  opts.Backups,
		lg:       opts.Logger,
		dir:      dir,
		book:     book,
		ledger:   ledger,
		orders:   order.NewService(dir, book, ledger),
		metrics:  m,
	}, nil
}

// Load reads the three collections concurrently and replaces the in-memory
// state. Stored order totals that disagree with their lines are logged and
// replaced by the computed value.
func (s *Shop) Load(ctx context.Context) error {
	var (
		products []product.Product
		clients  []client.Client
		orders   []order.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = s.storage.Products.LoadAll(gctx); err != nil {
			return errors.Wrap(err, "load products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if clients, err = s.storage.Clients.LoadAll(gctx); err != nil {
			return errors.Wrap(err, "load clients")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if orders, err = s.storage.Orders.LoadAll(gctx); err != nil {
			return errors.Wrap(err, "load orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	book := order.NewBook()
	dir := directory.New(book)
	s.logSkipped("products", dir.LoadProducts(products))
	s.logSkipped("clients", dir.LoadClients(clients))
	mismatches, skipped := book.Load(orders)
	s.logSkipped("orders", skipped)
	for _, w := range mismatches {
		s.lg.Warn("Stored order total differs from its lines, using computed total",
			zap.String("order", w.Number),
			zap.String("stored", w.Stored.String()),
			zap.String("computed", w.Computed.String()),
		)
	}

	s.book = book
	s.dir = dir
	s.orders = order.NewService(dir, book, s.ledger)

	s.lg.Info("Data loaded",
		zap.Int("products", len(dir.Products())),
		zap.Int("clients", len(dir.Clients())),
		zap.Int("orders", len(book.All())),
	)
	return nil
}

func (s *Shop) logSkipped(collection string, skipped []error) {
	for _, err := range skipped {
		s.lg.Warn("Skipping stored record, keeping the first occurrence",
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
}

// Save writes the three collections concurrently.
func (s *Shop) Save(ctx context.Context) error {
	products := s.dir.ProductSnapshot()
	clients := s.dir.ClientSnapshot()
	orders := s.book.Snapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.storage.Products.SaveAll(gctx, products); err != nil {
			return errors.Wrap(err, "save products")
		}
		return nil
	})
	g.Go(func() error {
		if err := s.storage.Clients.SaveAll(gctx, clients); err != nil {
			return errors.Wrap(err, "save clients")
		}
		return nil
	})
	g.Go(func() error {
		if err := s.storage.Orders.SaveAll(gctx, orders); err != nil {
			return errors.Wrap(err, "save orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.lg.Info("Data saved",
		zap.Int("products", len(products)),
		zap.Int("clients", len(clients)),
		zap.Int("orders", len(orders)),
	)
	return nil
}

// Backup writes a compressed snapshot of the current state and returns its
// location.
func (s *Shop) Backup(ctx context.Context) (string, error) {
	return s.backups.WriteBackup(ctx, jsonfile.Snapshot{
		Products: s.dir.ProductSnapshot(),
		Clients:  s.dir.ClientSnapshot(),
		Orders:   s.book.Snapshot(),
	})
}

// AddProduct creates a product under a fresh reference.
func (s *Shop) AddProduct(name string, price decimal.Decimal, stock int) (*product.Product, error) {
	p, err := product.New(s.dir.NextProductRef(), strings.TrimSpace(name), price, stock)
	if err != nil {
		return nil, err
	}
	if err := s.dir.AddProduct(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Products lists products in insertion order.
func (s *Shop) Products() []*product.Product {
	return s.dir.Products()
}

// Product looks up a product.
func (s *Shop) Product(ref string) (*product.Product, error) {
	p, ok := s.dir.Product(ref)
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

// SearchProducts matches a name substring or a whole reference.
func (s *Shop) SearchProducts(term string) []*product.Product {
	return s.dir.SearchProducts(term)
}

// EditProduct changes the name and/or price of a product. Nil leaves a
// field unchanged.
func (s *Shop) EditProduct(ref string, name *string, price *decimal.Decimal) (*product.Product, error) {
	return s.dir.EditProduct(ref, name, price)
}

// RemoveProduct deletes a product no active order references.
func (s *Shop) RemoveProduct(ref string) error {
	return s.dir.RemoveProduct(ref)
}

// AddClient registers c under a fresh identifier. c.ID is ignored.
func (s *Shop) AddClient(c client.Client) (*client.Client, error) {
	c.LastName = strings.TrimSpace(c.LastName)
	c.FirstName = strings.TrimSpace(c.FirstName)
	if c.LastName == "" && c.FirstName == "" {
		return nil, ErrInvalidClient
	}
	c.ID = s.dir.NextClientID()
	if err := s.dir.AddClient(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Clients lists clients in insertion order.
func (s *Shop) Clients() []*client.Client {
	return s.dir.Clients()
}

// Client looks up a client.
func (s *Shop) Client(id string) (*client.Client, error) {
	c, ok := s.dir.Client(id)
	if !ok {
		return nil, client.ErrNotFound
	}
	return c, nil
}

// SearchClients matches a name substring or a whole identifier.
func (s *Shop) SearchClients(term string) []*client.Client {
	return s.dir.SearchClients(term)
}

// EditClient applies ch to a client.
func (s *Shop) EditClient(id string, ch client.Changes) (*client.Client, error) {
	return s.dir.EditClient(id, ch)
}

// RemoveClient deletes a client without active orders.
func (s *Shop) RemoveClient(id string) error {
	return s.dir.RemoveClient(id)
}

// CreateOrder opens an empty order for an existing client.
func (s *Shop) CreateOrder(ctx context.Context, clientID string) (*order.Order, error) {
	o, err := s.orders.CreateOrder(clientID)
	if err != nil {
		return nil, err
	}
	s.metrics.created.Add(ctx, 1)
	return o, nil
}

// AddLine adds quantity units of a product to an open order.
func (s *Shop) AddLine(number, ref string, quantity int) (*order.Order, error) {
	return s.orders.AddLine(number, ref, quantity)
}

// Orders describes every order, with client and product names resolved.
func (s *Shop) Orders() []*order.Receipt {
	all := s.orders.Orders()
	out := make([]*order.Receipt, len(all))
	for i, o := range all {
		out[i] = s.orders.Describe(o)
	}
	return out
}

// Order looks up an order.
func (s *Shop) Order(number string) (*order.Order, error) {
	return s.orders.Order(number)
}

// Validate deducts stock for an open order, all lines or none.
func (s *Shop) Validate(ctx context.Context, number string) (*order.Order, error) {
	o, err := s.orders.Validate(number)
	if err != nil {
		return nil, err
	}
	s.metrics.validated.Add(ctx, 1)
	s.metrics.units.Add(ctx, int64(totalUnits(o)))
	return o, nil
}

// Cancel cancels an order, restoring stock if it was validated. Lines whose
// product no longer exists are logged and listed in the result.
func (s *Shop) Cancel(ctx context.Context, number string) (*order.CancelResult, error) {
	res, err := s.orders.Cancel(number)
	if err != nil {
		return nil, err
	}
	if res.PreviousStatus != order.StatusCancelled {
		s.metrics.cancelled.Add(ctx, 1,
			metric.WithAttributes(attribute.String("from", string(res.PreviousStatus))))
	}
	for _, w := range res.Skipped {
		s.lg.Warn("Stock not restored, product no longer exists",
			zap.String("order", w.Number),
			zap.String("product", w.ProductRef),
			zap.Int("quantity", w.Quantity),
		)
		s.metrics.skipped.Add(ctx, 1)
	}
	return res, nil
}

// Receipt builds the receipt of an order and files it. The returned path is
// empty when no sink is configured.
func (s *Shop) Receipt(number string) (*order.Receipt, string, error) {
	r, err := s.orders.Receipt(number)
	if err != nil {
		return nil, "", err
	}
	if s.receipts == nil {
		return r, "", nil
	}
	path, err := s.receipts.Write(r)
	if err != nil {
		return r, "", errors.Wrap(err, "file receipt")
	}
	return r, path, nil
}

// Movements returns the stock journal of this session, oldest first.
func (s *Shop) Movements() []inventory.Movement {
	return s.ledger.Movements()
}

func totalUnits(o *order.Order) int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
