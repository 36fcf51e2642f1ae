package order

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusOpen accepts new lines and has not touched stock yet.
	StatusOpen Status = "open"
	// StatusValidated has its stock deducted and its composition frozen.
	StatusValidated Status = "validated"
	// StatusCancelled is terminal; stock deducted at validation is restored.
	StatusCancelled Status = "cancelled"
)

// Persisted labels, kept compatible with existing data files.
const (
	labelOpen      = "En Cours"
	labelValidated = "Validée"
	labelCancelled = "Annulée"
)

// ErrUnknownStatus is returned when a persisted status label is not recognised.
var ErrUnknownStatus = errors.New("unknown order status")

// Label returns the persisted form of s.
func (s Status) Label() string {
	switch s {
	case StatusValidated:
		return labelValidated
	case StatusCancelled:
		return labelCancelled
	default:
		return labelOpen
	}
}

// ParseStatus maps a persisted label (or the enum value itself) to a Status.
// An empty label means Open, as in files written before statuses existed.
func ParseStatus(label string) (Status, error) {
	switch label {
	case labelOpen, string(StatusOpen), "":
		return StatusOpen, nil
	case labelValidated, string(StatusValidated):
		return StatusValidated, nil
	case labelCancelled, string(StatusCancelled):
		return StatusCancelled, nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", label)
}

// Line is one product entry on an order. UnitPrice is the sale price captured
// when the product was first added.
type Line struct {
	ProductRef string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// Amount returns Quantity × UnitPrice.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a client order. ClientID and Line.ProductRef are soft references
// resolved through the directory.
type Order struct {
	Number    string
	CreatedAt time.Time
	ClientID  string
	Lines     []Line
	Total     decimal.Decimal
	Status    Status
}

// New returns an Open order with no lines.
func New(number, clientID string, createdAt time.Time) *Order {
	return &Order{
		Number:    number,
		CreatedAt: createdAt,
		ClientID:  clientID,
		Total:     decimal.Zero,
		Status:    StatusOpen,
	}
}

// IsActive reports whether the order still holds references on its client and
// products.
func (o *Order) IsActive() bool {
	return o.Status != StatusCancelled
}

// Quantity returns the quantity already on the order for ref, summed over
// every line on it. The sum saturates at math.MaxInt.
func (o *Order) Quantity(ref string) int {
	n := 0
	for _, l := range o.Lines {
		if l.ProductRef != ref {
			continue
		}
		if l.Quantity > math.MaxInt-n {
			return math.MaxInt
		}
		n += l.Quantity
	}
	return n
}

// HasProduct reports whether any line references ref.
func (o *Order) HasProduct(ref string) bool {
	for _, l := range o.Lines {
		if l.ProductRef == ref {
			return true
		}
	}
	return false
}

// addLine merges quantity into an existing line for ref or appends a new line
// priced at price. The price of an existing line is never changed.
func (o *Order) addLine(ref string, quantity int, price decimal.Decimal) {
	merged := false
	for i := range o.Lines {
		if o.Lines[i].ProductRef == ref {
			o.Lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		o.Lines = append(o.Lines, Line{
			ProductRef: ref,
			Quantity:   quantity,
			UnitPrice:  price,
		})
	}
	o.recompute()
}

func (o *Order) recompute() {
	o.Total = Sum(o.Lines)
}

// Sum returns Σ quantity × unit price over lines.
func Sum(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// TotalMismatch is a warning raised when a persisted total disagrees with the
// total derived from the order's lines.
type TotalMismatch struct {
	Number   string
	Stored   decimal.Decimal
	Computed decimal.Decimal
}

func (w *TotalMismatch) String() string {
	return fmt.Sprintf("order %s: stored total %s differs from computed total %s",
		w.Number, w.Stored, w.Computed)
}

// Restore rebuilds a persisted order. The stored total is only a seed: the
// returned order carries the total recomputed from its lines, and a
// *TotalMismatch is returned when the two differ at cent precision.
func Restore(seed Order) (*Order, *TotalMismatch) {
	o := seed
	o.Lines = make([]Line, len(seed.Lines))
	copy(o.Lines, seed.Lines)
	if o.Status == "" {
		o.Status = StatusOpen
	}
	o.recompute()

	if !seed.Total.Round(2).Equal(o.Total.Round(2)) {
		return &o, &TotalMismatch{
			Number:   o.Number,
			Stored:   seed.Total,
			Computed: o.Total,
		}
	}
	return &o, nil
}

// Repository loads and stores the whole order ledger.
type Repository interface {
	LoadAll(ctx context.Context) ([]Order, error)
	SaveAll(ctx context.Context, orders []Order) error
}
