// Package inventory owns every change to product stock. Order validation and
// cancellation go through Ledger.Adjust so the non-negative stock invariant is
// enforced in one place.
package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/shopledger/internal/domain/product"
)

// Sentinel errors for stock changes.
var (
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid stock quantity")
)

// InsufficientStockError reports a withdrawal larger than the available stock.
type InsufficientStockError struct {
	Reference string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.Reference, e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Reason labels why a stock movement happened.
type Reason string

const (
	ReasonValidation Reason = "order_validated"
	ReasonCancel     Reason = "order_cancelled"
	ReasonRollback   Reason = "validation_rollback"
)

// Movement is one applied stock change.
type Movement struct {
	Reference string
	Delta     int
	Before    int
	After     int
	Reason    Reason
	Order     string
	At        time.Time
}

// Ledger applies stock deltas and journals them.
type Ledger struct {
	movements []Movement
	now       func() time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Check reports whether p can give up quantity units without mutating it.
func Check(p *product.Product, quantity int) error {
	return CheckAdditional(p, 0, quantity)
}

// CheckAdditional reports whether p can give up quantity more units on top of
// the held units already claimed from it. It never overflows: the remaining
// stock is compared instead of the sum.
func CheckAdditional(p *product.Product, held, quantity int) error {
	if held < 0 || quantity < 0 {
		return errors.Wrapf(ErrInvalidQuantity, "product %s: held %d, requested %d", p.Reference, held, quantity)
	}
	if quantity > p.Stock-held {
		requested := math.MaxInt
		if quantity <= math.MaxInt-held {
			requested = held + quantity
		}
		return &InsufficientStockError{
			Reference: p.Reference,
			Available: p.Stock,
			Requested: requested,
		}
	}
	return nil
}

// Adjust applies p.Stock += delta. When the result would be negative nothing
// is changed and an *InsufficientStockError is returned. A delta that cannot
// be applied without overflow fails with ErrInvalidQuantity.
func (l *Ledger) Adjust(p *product.Product, delta int, reason Reason, orderNumber string) (Movement, error) {
	switch {
	case delta == math.MinInt:
		return Movement{}, errors.Wrapf(ErrInvalidQuantity, "product %s: delta %d", p.Reference, delta)
	case delta < 0:
		if err := Check(p, -delta); err != nil {
			return Movement{}, err
		}
	case p.Stock > math.MaxInt-delta:
		return Movement{}, errors.Wrapf(ErrInvalidQuantity, "product %s: stock %d overflows by %d", p.Reference, p.Stock, delta)
	}

	m := Movement{
		Reference: p.Reference,
		Delta:     delta,
		Before:    p.Stock,
		After:     p.Stock + delta,
		Reason:    reason,
		Order:     orderNumber,
		At:        l.now(),
	}
	p.Stock = m.After
	l.movements = append(l.movements, m)

	return m, nil
}

// Movements returns a copy of the journal, oldest first.
func (l *Ledger) Movements() []Movement {
	out := make([]Movement, len(l.movements))
	copy(out, l.movements)
	return out
}
