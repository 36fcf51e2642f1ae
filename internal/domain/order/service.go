package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/inventory"
	"github.com/xenking/shopledger/internal/domain/product"
)

// Sentinel errors for order operations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrNotOpen         = errors.New("order is not open")
	ErrEmptyOrder      = errors.New("order has no lines")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// NotOpenError reports an operation that needs an Open order.
type NotOpenError struct {
	Number string
	Status Status
}

func (e *NotOpenError) Error() string {
	return fmt.Sprintf("order %s is %s, not open", e.Number, e.Status)
}

// Is lets errors.Is(err, ErrNotOpen) match.
func (e *NotOpenError) Is(target error) bool {
	return target == ErrNotOpen
}

// Catalog resolves the soft references held by orders.
type Catalog interface {
	Product(ref string) (*product.Product, bool)
	Client(id string) (*client.Client, bool)
}

// RestoreSkipped is the warning produced when a cancelled order references a
// product that no longer exists, so its stock cannot be given back.
type RestoreSkipped struct {
	Number     string
	ProductRef string
	Quantity   int
}

func (w RestoreSkipped) String() string {
	return fmt.Sprintf("order %s: cannot restore %d unit(s) of deleted product %s",
		w.Number, w.Quantity, w.ProductRef)
}

// CancelResult holds the outcome of a cancellation.
type CancelResult struct {
	Order          *Order
	PreviousStatus Status
	Restored       []inventory.Movement
	Skipped        []RestoreSkipped
}

// Service implements the order lifecycle on top of the directory and the
// inventory ledger.
type Service struct {
	catalog Catalog
	book    *Book
	ledger  *inventory.Ledger
	now     func() time.Time
}

// NewService creates an order Service.
func NewService(catalog Catalog, book *Book, ledger *inventory.Ledger) *Service {
	return &Service{
		catalog: catalog,
		book:    book,
		ledger:  ledger,
		now:     time.Now,
	}
}

// Orders returns every order in creation order.
func (s *Service) Orders() []*Order {
	return s.book.All()
}

// Order returns the order with the given number.
func (s *Service) Order(number string) (*Order, error) {
	o, ok := s.book.Get(number)
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// CreateOrder opens a new empty order for clientID.
func (s *Service) CreateOrder(clientID string) (*Order, error) {
	if _, ok := s.catalog.Client(clientID); !ok {
		return nil, client.ErrNotFound
	}

	now := s.now()
	for range 5 {
		number := "CMD-" + now.Format("20060102") + "-" + shortID(4)
		if _, taken := s.book.Get(number); taken {
			continue
		}
		o := New(number, clientID, now)
		if err := s.book.add(o); err != nil {
			return nil, errors.Wrap(err, "add order")
		}
		return o, nil
	}
	return nil, errors.Wrap(ErrDuplicateNumber, "generate order number")
}

// AddLine adds quantity units of ref to an Open order, merging with an existing
// line for the same product. Stock is checked but not reserved.
func (s *Service) AddLine(number, ref string, quantity int) (*Order, error) {
	o, err := s.openOrder(number)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, ok := s.catalog.Product(ref)
	if !ok {
		return nil, product.ErrNotFound
	}
	if err := inventory.CheckAdditional(p, o.Quantity(ref), quantity); err != nil {
		return nil, err
	}

	o.addLine(ref, quantity, p.UnitPrice)
	return o, nil
}

// Validate commits the order's stock impact. Every line is checked before any
// stock is touched; if a check fails the order stays Open and no product is
// modified.
func (s *Service) Validate(number string) (*Order, error) {
	o, err := s.openOrder(number)
	if err != nil {
		return nil, err
	}
	if len(o.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	// Phase 1: resolve and check everything. Lines sharing a product are
	// checked against its stock together.
	products := make([]*product.Product, len(o.Lines))
	held := make(map[string]int, len(o.Lines))
	for i, l := range o.Lines {
		p, ok := s.catalog.Product(l.ProductRef)
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "line %s", l.ProductRef)
		}
		if l.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "line %s", l.ProductRef)
		}
		if err := inventory.CheckAdditional(p, held[l.ProductRef], l.Quantity); err != nil {
			return nil, err
		}
		held[l.ProductRef] += l.Quantity
		products[i] = p
	}

	// Phase 2: apply.
	applied := make([]inventory.Movement, 0, len(o.Lines))
	for i, l := range o.Lines {
		m, err := s.ledger.Adjust(products[i], -l.Quantity, inventory.ReasonValidation, o.Number)
		if err != nil {
			s.rollback(products[:i], applied, o.Number)
			return nil, errors.Wrapf(err, "deduct stock for %s", l.ProductRef)
		}
		applied = append(applied, m)
	}

	o.Status = StatusValidated
	return o, nil
}

func (s *Service) rollback(products []*product.Product, applied []inventory.Movement, number string) {
	for i := len(applied) - 1; i >= 0; i-- {
		_, _ = s.ledger.Adjust(products[i], -applied[i].Delta, inventory.ReasonRollback, number)
	}
}

// Cancel moves the order to Cancelled from any state. Stock is restored only
// when the order was Validated; lines whose product has since been removed are
// reported in CancelResult.Skipped.
func (s *Service) Cancel(number string) (*CancelResult, error) {
	o, ok := s.book.Get(number)
	if !ok {
		return nil, ErrNotFound
	}

	res := &CancelResult{Order: o, PreviousStatus: o.Status}
	o.Status = StatusCancelled

	if res.PreviousStatus != StatusValidated {
		return res, nil
	}

	for _, l := range o.Lines {
		p, ok := s.catalog.Product(l.ProductRef)
		if !ok {
			res.Skipped = append(res.Skipped, RestoreSkipped{
				Number:     o.Number,
				ProductRef: l.ProductRef,
				Quantity:   l.Quantity,
			})
			continue
		}
		m, err := s.ledger.Adjust(p, l.Quantity, inventory.ReasonCancel, o.Number)
		if err != nil {
			// A positive delta cannot make stock negative.
			return nil, errors.Wrapf(err, "restore stock for %s", l.ProductRef)
		}
		res.Restored = append(res.Restored, m)
	}
	return res, nil
}

func (s *Service) openOrder(number string) (*Order, error) {
	o, ok := s.book.Get(number)
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != StatusOpen {
		return nil, &NotOpenError{Number: o.Number, Status: o.Status}
	}
	return o, nil
}

// Unresolved labels used when a soft reference no longer resolves.
const (
	UnknownClient  = "Unknown client"
	UnknownProduct = "unknown product"
)

// Receipt is a read-only summary of an order with resolved names.
type Receipt struct {
	Number     string
	CreatedAt  time.Time
	ClientID   string
	ClientName string
	Status     Status
	Lines      []ReceiptLine
	Total      decimal.Decimal
}

// ReceiptLine is a Line with its product name resolved.
type ReceiptLine struct {
	ProductRef  string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Receipt builds the receipt for an order. It does not mutate anything.
func (s *Service) Receipt(number string) (*Receipt, error) {
	o, ok := s.book.Get(number)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Describe(o), nil
}

// Describe resolves the names referenced by o.
func (s *Service) Describe(o *Order) *Receipt {
	r := &Receipt{
		Number:     o.Number,
		CreatedAt:  o.CreatedAt,
		ClientID:   o.ClientID,
		ClientName: UnknownClient,
		Status:     o.Status,
		Lines:      make([]ReceiptLine, len(o.Lines)),
		Total:      Sum(o.Lines),
	}
	if c, ok := s.catalog.Client(o.ClientID); ok {
		r.ClientName = c.FullName()
	}
	for i, l := range o.Lines {
		name := UnknownProduct
		if p, ok := s.catalog.Product(l.ProductRef); ok {
			name = p.Name
		}
		r.Lines[i] = ReceiptLine{
			ProductRef:  l.ProductRef,
			ProductName: name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount(),
		}
	}
	return r
}

// shortID returns n upper-case characters from a fresh UUID.
func shortID(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:n])
}
