package product

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidPrice is returned when a unit price is not a positive number.
	ErrInvalidPrice = errors.New("price must be a positive number")
	// ErrInvalidStock is returned when a stock count is not a non-negative integer.
	ErrInvalidStock = errors.New("stock must be a non-negative integer")
	// ErrEmptyName is returned when a product is given a blank name.
	ErrEmptyName = errors.New("product name must not be empty")
)

// Product represents a catalog item. Stock is only changed through the
// inventory ledger; the remaining fields are edited through the directory.
type Product struct {
	Reference string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
}

// New builds a Product, enforcing price > 0 and stock >= 0.
func New(reference, name string, price decimal.Decimal, stock int) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	return &Product{
		Reference: reference,
		Name:      name,
		UnitPrice: price,
		Stock:     stock,
	}, nil
}

// Parse builds a Product from raw text as typed by an operator or found in
// legacy files.
func Parse(reference, name, price, stock string) (*Product, error) {
	p, err := ParsePrice(price)
	if err != nil {
		return nil, err
	}
	s, err := ParseStock(stock)
	if err != nil {
		return nil, err
	}
	return New(reference, name, p, s)
}

// ParsePrice parses a positive decimal price.
func ParsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !p.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	return p, nil
}

// ParseStock parses a non-negative integer stock count.
func ParseStock(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, ErrInvalidStock
	}
	return n, nil
}

// Rename sets a new non-empty name.
func (p *Product) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	p.Name = name
	return nil
}

// Reprice sets a new unit price. Prices already captured on order lines are
// not affected.
func (p *Product) Reprice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	p.UnitPrice = price
	return nil
}

// Repository loads and stores the whole product collection.
type Repository interface {
	LoadAll(ctx context.Context) ([]Product, error)
	SaveAll(ctx context.Context, products []Product) error
}
