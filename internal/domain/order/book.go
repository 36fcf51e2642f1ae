package order

import (
	"github.com/go-faster/errors"
)

// ErrDuplicateNumber is returned when an order number is already taken.
var ErrDuplicateNumber = errors.New("order number already exists")

// Book is the in-memory order ledger keyed by order number. Orders are listed
// in insertion order and never removed.
type Book struct {
	byNumber map[string]*Order
	numbers  []string
}

// NewBook creates an empty Book.
func NewBook() *Book {
	return &Book{byNumber: make(map[string]*Order)}
}

// Load replaces the book's content with restored copies of seeds. It returns
// the total mismatches found along the way and the seeds skipped because
// their number was already taken; the first occurrence wins.
func (b *Book) Load(seeds []Order) (mismatches []*TotalMismatch, skipped []error) {
	b.byNumber = make(map[string]*Order, len(seeds))
	b.numbers = b.numbers[:0]

	for _, seed := range seeds {
		o, mismatch := Restore(seed)
		if err := b.add(o); err != nil {
			skipped = append(skipped, errors.Wrapf(err, "order %s", seed.Number))
			continue
		}
		if mismatch != nil {
			mismatches = append(mismatches, mismatch)
		}
	}
	return mismatches, skipped
}

func (b *Book) add(o *Order) error {
	if _, ok := b.byNumber[o.Number]; ok {
		return ErrDuplicateNumber
	}
	b.byNumber[o.Number] = o
	b.numbers = append(b.numbers, o.Number)
	return nil
}

// Get returns the order with the given number.
func (b *Book) Get(number string) (*Order, bool) {
	o, ok := b.byNumber[number]
	return o, ok
}

// All returns every order in insertion order.
func (b *Book) All() []*Order {
	out := make([]*Order, 0, len(b.numbers))
	for _, n := range b.numbers {
		out = append(out, b.byNumber[n])
	}
	return out
}

// Snapshot returns value copies of every order, ready to persist.
func (b *Book) Snapshot() []Order {
	out := make([]Order, 0, len(b.numbers))
	for _, n := range b.numbers {
		o := *b.byNumber[n]
		o.Lines = append([]Line(nil), o.Lines...)
		out = append(out, o)
	}
	return out
}

// ProductInUse returns the number of the first non-cancelled order with a line
// on ref.
func (b *Book) ProductInUse(ref string) (string, bool) {
	for _, n := range b.numbers {
		o := b.byNumber[n]
		if o.IsActive() && o.HasProduct(ref) {
			return n, true
		}
	}
	return "", false
}

// ClientHasActiveOrder returns the number of the first non-cancelled order of
// clientID.
func (b *Book) ClientHasActiveOrder(clientID string) (string, bool) {
	for _, n := range b.numbers {
		o := b.byNumber[n]
		if o.IsActive() && o.ClientID == clientID {
			return n, true
		}
	}
	return "", false
}
