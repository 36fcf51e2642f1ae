// Package directory keeps the product catalog and the client directory in
// memory, keyed by identifier, and guards removals against live order
// references.
package directory

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/product"
)

var (
	// ErrDuplicateID is returned when an identifier is already in use.
	ErrDuplicateID = errors.New("identifier already exists")
	// ErrReferencedByOrder is matched by *ReferencedError.
	ErrReferencedByOrder = errors.New("referenced by an active order")
)

// ReferencedError reports a removal blocked by a non-cancelled order.
type ReferencedError struct {
	Kind  string
	ID    string
	Order string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("%s %s is referenced by active order %s", e.Kind, e.ID, e.Order)
}

// Is lets errors.Is(err, ErrReferencedByOrder) match.
func (e *ReferencedError) Is(target error) bool {
	return target == ErrReferencedByOrder
}

// References answers whether orders still point at a product or client.
type References interface {
	ProductInUse(ref string) (string, bool)
	ClientHasActiveOrder(clientID string) (string, bool)
}

// Directory holds products and clients.
type Directory struct {
	refs References

	products   map[string]*product.Product
	productIDs []string
	clients    map[string]*client.Client
	clientIDs  []string
}

// New creates an empty Directory checking removals against refs.
func New(refs References) *Directory {
	return &Directory{
		refs:     refs,
		products: make(map[string]*product.Product),
		clients:  make(map[string]*client.Client),
	}
}

// NextProductRef returns a fresh, unused product reference.
func (d *Directory) NextProductRef() string {
	for {
		ref := "PROD-" + shortID()
		if _, ok := d.products[ref]; !ok {
			return ref
		}
	}
}

// NextClientID returns a fresh, unused client identifier.
func (d *Directory) NextClientID() string {
	for {
		id := "CLI-" + shortID()
		if _, ok := d.clients[id]; !ok {
			return id
		}
	}
}

// AddProduct inserts p. It fails with ErrDuplicateID on a reference collision.
func (d *Directory) AddProduct(p *product.Product) error {
	if _, ok := d.products[p.Reference]; ok {
		return errors.Wrapf(ErrDuplicateID, "product %s", p.Reference)
	}
	d.products[p.Reference] = p
	d.productIDs = append(d.productIDs, p.Reference)
	return nil
}

// Product resolves a product reference.
func (d *Directory) Product(ref string) (*product.Product, bool) {
	p, ok := d.products[ref]
	return p, ok
}

// Products returns all products in insertion order.
func (d *Directory) Products() []*product.Product {
	out := make([]*product.Product, 0, len(d.productIDs))
	for _, ref := range d.productIDs {
		out = append(out, d.products[ref])
	}
	return out
}

// SearchProducts matches term case-insensitively as a substring of the name
// or as the whole reference.
func (d *Directory) SearchProducts(term string) []*product.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []*product.Product
	for _, p := range d.Products() {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.ToLower(p.Reference) == term {
			out = append(out, p)
		}
	}
	return out
}

// EditProduct renames and/or reprices a product. Nil arguments are skipped.
// Nothing is changed if either value is invalid.
func (d *Directory) EditProduct(ref string, name *string, price *decimal.Decimal) (*product.Product, error) {
	p, ok := d.products[ref]
	if !ok {
		return nil, product.ErrNotFound
	}

	next := *p
	if name != nil {
		if err := next.Rename(*name); err != nil {
			return nil, err
		}
	}
	if price != nil {
		if err := next.Reprice(*price); err != nil {
			return nil, err
		}
	}
	p.Name, p.UnitPrice = next.Name, next.UnitPrice
	return p, nil
}

// RemoveProduct deletes a product unless an active order has a line on it.
func (d *Directory) RemoveProduct(ref string) error {
	if number, ok := d.refs.ProductInUse(ref); ok {
		return &ReferencedError{Kind: "product", ID: ref, Order: number}
	}
	if _, ok := d.products[ref]; !ok {
		return product.ErrNotFound
	}
	delete(d.products, ref)
	d.productIDs = without(d.productIDs, ref)
	return nil
}

// AddClient inserts c. It fails with ErrDuplicateID on an identifier collision.
func (d *Directory) AddClient(c *client.Client) error {
	if _, ok := d.clients[c.ID]; ok {
		return errors.Wrapf(ErrDuplicateID, "client %s", c.ID)
	}
	d.clients[c.ID] = c
	d.clientIDs = append(d.clientIDs, c.ID)
	return nil
}

// Client resolves a client identifier.
func (d *Directory) Client(id string) (*client.Client, bool) {
	c, ok := d.clients[id]
	return c, ok
}

// Clients returns all clients in insertion order.
func (d *Directory) Clients() []*client.Client {
	out := make([]*client.Client, 0, len(d.clientIDs))
	for _, id := range d.clientIDs {
		out = append(out, d.clients[id])
	}
	return out
}

// SearchClients matches term case-insensitively as a substring of the first
// or last name, or as the whole identifier.
func (d *Directory) SearchClients(term string) []*client.Client {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []*client.Client
	for _, c := range d.Clients() {
		if strings.Contains(strings.ToLower(c.LastName), term) ||
			strings.Contains(strings.ToLower(c.FirstName), term) ||
			strings.ToLower(c.ID) == term {
			out = append(out, c)
		}
	}
	return out
}

// EditClient applies ch to the client with the given id.
func (d *Directory) EditClient(id string, ch client.Changes) (*client.Client, error) {
	c, ok := d.clients[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	c.Apply(ch)
	return c, nil
}

// RemoveClient deletes a client unless one of its orders is still active.
func (d *Directory) RemoveClient(id string) error {
	if number, ok := d.refs.ClientHasActiveOrder(id); ok {
		return &ReferencedError{Kind: "client", ID: id, Order: number}
	}
	if _, ok := d.clients[id]; !ok {
		return client.ErrNotFound
	}
	delete(d.clients, id)
	d.clientIDs = without(d.clientIDs, id)
	return nil
}

// LoadProducts replaces the catalog. Records are re-validated; invalid and
// duplicate records are skipped and returned, the first occurrence of a
// reference wins.
func (d *Directory) LoadProducts(records []product.Product) (skipped []error) {
	d.products = make(map[string]*product.Product, len(records))
	d.productIDs = nil
	for _, r := range records {
		p, err := product.New(r.Reference, r.Name, r.UnitPrice, r.Stock)
		if err != nil {
			skipped = append(skipped, errors.Wrapf(err, "product %s", r.Reference))
			continue
		}
		if err := d.AddProduct(p); err != nil {
			skipped = append(skipped, err)
		}
	}
	return skipped
}

// LoadClients replaces the client directory. Duplicate identifiers are
// skipped and returned, the first occurrence wins.
func (d *Directory) LoadClients(records []client.Client) (skipped []error) {
	d.clients = make(map[string]*client.Client, len(records))
	d.clientIDs = nil
	for i := range records {
		c := records[i]
		if err := d.AddClient(&c); err != nil {
			skipped = append(skipped, err)
		}
	}
	return skipped
}

// ProductSnapshot returns value copies of all products, ready to persist.
func (d *Directory) ProductSnapshot() []product.Product {
	out := make([]product.Product, 0, len(d.productIDs))
	for _, ref := range d.productIDs {
		out = append(out, *d.products[ref])
	}
	return out
}

// ClientSnapshot returns value copies of all clients, ready to persist.
func (d *Directory) ClientSnapshot() []client.Client {
	out := make([]client.Client, 0, len(d.clientIDs))
	for _, id := range d.clientIDs {
		out = append(out, *d.clients[id])
	}
	return out
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func shortID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
