package order

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopledger/internal/domain/client"
	"github.com/xenking/shopledger/internal/domain/inventory"
	"github.com/xenking/shopledger/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	products map[string]*product.Product
	clients  map[string]*client.Client
}

func (m *mockCatalog) Product(ref string) (*product.Product, bool) {
	p, ok := m.products[ref]
	return p, ok
}

func (m *mockCatalog) Client(id string) (*client.Client, bool) {
	c, ok := m.clients[id]
	return c, ok
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newCatalog(t *testing.T, products ...*product.Product) *mockCatalog {
	t.Helper()
	m := &mockCatalog{
		products: make(map[string]*product.Product),
		clients: map[string]*client.Client{
			"C1": {ID: "C1", LastName: "Alaoui", FirstName: "Sara"},
		},
	}
	for _, p := range products {
		m.products[p.Reference] = p
	}
	return m
}

func newProduct(t *testing.T, ref, price string, stock int) *product.Product {
	t.Helper()
	p, err := product.New(ref, "Item "+ref, d(price), stock)
	require.NoError(t, err)
	return p
}

func newService(catalog Catalog) *Service {
	svc := NewService(catalog, NewBook(), inventory.NewLedger())
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC) }
	return svc
}

func openOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := svc.CreateOrder("C1")
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	svc := newService(newCatalog(t))

	o, err := svc.CreateOrder("C1")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, o.Status)
	assert.Empty(t, o.Lines)
	assert.True(t, o.Total.IsZero())
	assert.Regexp(t, `^CMD-20240309-[0-9A-F]{4}$`, o.Number)

	got, err := svc.Order(o.Number)
	require.NoError(t, err)
	assert.Same(t, o, got)
}

func TestCreateOrder_ClientNotFound(t *testing.T) {
	svc := newService(newCatalog(t))

	_, err := svc.CreateOrder("nobody")
	require.ErrorIs(t, err, client.ErrNotFound)
	assert.Empty(t, svc.Orders())
}

func TestAddLine_TotalTracksLines(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 50)
	p2 := newProduct(t, "P2", "2.35", 50)
	p3 := newProduct(t, "P3", "0.10", 50)
	svc := newService(newCatalog(t, p1, p2, p3))
	o := openOrder(t, svc)

	steps := []struct {
		ref string
		qty int
	}{
		{"P1", 1}, {"P2", 3}, {"P3", 7}, {"P1", 2}, {"P3", 3},
	}
	for _, s := range steps {
		_, err := svc.AddLine(o.Number, s.ref, s.qty)
		require.NoError(t, err)

		want := decimal.Zero
		for _, l := range o.Lines {
			want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		assert.True(t, want.Equal(o.Total), "total %s, want %s", o.Total, want)
	}
	assert.True(t, d("38.05").Equal(o.Total), "got %s", o.Total)
}

func TestAddLine_MergesSameProduct(t *testing.T) {
	p1 := newProduct(t, "P1", "4.00", 10)
	svc := newService(newCatalog(t, p1))
	o := openOrder(t, svc)

	_, err := svc.AddLine(o.Number, "P1", 2)
	require.NoError(t, err)

	// A price change between additions must not reprice the line.
	require.NoError(t, p1.Reprice(d("9.00")))

	_, err = svc.AddLine(o.Number, "P1", 3)
	require.NoError(t, err)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, 5, o.Lines[0].Quantity)
	assert.True(t, d("4.00").Equal(o.Lines[0].UnitPrice))
	assert.True(t, d("20.00").Equal(o.Total))
	assert.Equal(t, 10, p1.Stock, "adding lines must not touch stock")
}

func TestAddLine_Errors(t *testing.T) {
	p1 := newProduct(t, "P1", "1.00", 3)
	svc := newService(newCatalog(t, p1))
	o := openOrder(t, svc)

	_, err := svc.AddLine("missing", "P1", 1)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddLine(o.Number, "nope", 1)
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.AddLine(o.Number, "P1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddLine(o.Number, "P1", 4)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = svc.AddLine(o.Number, "P1", 2)
	require.NoError(t, err)

	// The merged quantity is what gets checked.
	_, err = svc.AddLine(o.Number, "P1", 2)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 2, o.Lines[0].Quantity)

	_, err = svc.Validate(o.Number)
	require.NoError(t, err)

	_, err = svc.AddLine(o.Number, "P1", 1)
	require.ErrorIs(t, err, ErrNotOpen)
	var notOpen *NotOpenError
	require.ErrorAs(t, err, &notOpen)
	assert.Equal(t, StatusValidated, notOpen.Status)
}

func TestValidate_DeductsStock(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "1.00", 8)
	svc := newService(newCatalog(t, p1, p2))
	o := openOrder(t, svc)

	_, err := svc.AddLine(o.Number, "P1", 3)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 8)
	require.NoError(t, err)

	_, err = svc.Validate(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, o.Status)
	assert.Equal(t, 2, p1.Stock)
	assert.Equal(t, 0, p2.Stock)
	assert.Len(t, svc.ledger.Movements(), 2)
}

func TestValidate_SecondLineUnderStockedLeavesEverythingUntouched(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "3.00", 4)
	svc := newService(newCatalog(t, p1, p2))
	o := openOrder(t, svc)

	_, err := svc.AddLine(o.Number, "P1", 2)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 4)
	require.NoError(t, err)

	// Stock drifts after the lines were added, e.g. another order validated.
	other := openOrder(t, svc)
	_, err = svc.AddLine(other.Number, "P2", 1)
	require.NoError(t, err)
	_, err = svc.Validate(other.Number)
	require.NoError(t, err)
	require.Equal(t, 3, p2.Stock)
	movements := len(svc.ledger.Movements())

	_, err = svc.Validate(o.Number)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, 5, p1.Stock)
	assert.Equal(t, 3, p2.Stock)
	assert.Len(t, svc.ledger.Movements(), movements)
}

func TestAddLine_HugeQuantityIsRejected(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	svc := newService(newCatalog(t, p1))
	o := openOrder(t, svc)

	_, err := svc.AddLine(o.Number, "P1", 1)
	require.NoError(t, err)

	_, err = svc.AddLine(o.Number, "P1", math.MaxInt)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 1, o.Lines[0].Quantity)
	assert.True(t, d("10.00").Equal(o.Total))

	_, err = svc.Validate(o.Number)
	require.NoError(t, err)
	assert.Equal(t, 4, p1.Stock)
}

func TestValidate_LinesOfOneProductCheckedTogether(t *testing.T) {
	p1 := newProduct(t, "P1", "2.00", 5)
	svc := newService(newCatalog(t, p1))

	// Older files may hold several lines for one product.
	_, skipped := svc.book.Load([]Order{{
		Number:   "CMD-LEGACY",
		ClientID: "C1",
		Status:   StatusOpen,
		Lines: []Line{
			{ProductRef: "P1", Quantity: 3, UnitPrice: d("2.00")},
			{ProductRef: "P1", Quantity: 3, UnitPrice: d("2.00")},
		},
		Total: d("12.00"),
	}})
	require.Empty(t, skipped)

	_, err := svc.AddLine("CMD-LEGACY", "P1", 1)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock, "held quantity spans every line")

	_, err = svc.Validate("CMD-LEGACY")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	var isErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 6, isErr.Requested)

	o, err := svc.Order("CMD-LEGACY")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, 5, p1.Stock)
	assert.Empty(t, svc.ledger.Movements(), "a refused validation journals nothing")
}

func TestRollback(t *testing.T) {
	p1 := newProduct(t, "P1", "1.00", 5)
	p2 := newProduct(t, "P2", "1.00", 4)
	svc := newService(newCatalog(t, p1, p2))

	var applied []inventory.Movement
	for _, step := range []struct {
		p   *product.Product
		qty int
	}{{p1, 2}, {p2, 4}} {
		m, err := svc.ledger.Adjust(step.p, -step.qty, inventory.ReasonValidation, "CMD-1")
		require.NoError(t, err)
		applied = append(applied, m)
	}
	require.Equal(t, 3, p1.Stock)
	require.Equal(t, 0, p2.Stock)

	svc.rollback([]*product.Product{p1, p2}, applied, "CMD-1")

	assert.Equal(t, 5, p1.Stock)
	assert.Equal(t, 4, p2.Stock)
	movements := svc.ledger.Movements()
	require.Len(t, movements, 4)
	assert.Equal(t, "P2", movements[2].Reference, "rollback undoes the latest adjustment first")
	assert.Equal(t, 4, movements[2].Delta)
	assert.Equal(t, inventory.ReasonRollback, movements[2].Reason)
	assert.Equal(t, inventory.ReasonRollback, movements[3].Reason)
}

func TestValidate_MissingProduct(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "3.00", 4)
	catalog := newCatalog(t, p1, p2)
	svc := newService(catalog)
	o := openOrder(t, svc)

	_, err := svc.AddLine(o.Number, "P1", 1)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 1)
	require.NoError(t, err)
	delete(catalog.products, "P2")

	_, err = svc.Validate(o.Number)
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, 5, p1.Stock)
}

func TestValidate_Errors(t *testing.T) {
	svc := newService(newCatalog(t))
	o := openOrder(t, svc)

	_, err := svc.Validate("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Validate(o.Number)
	require.ErrorIs(t, err, ErrEmptyOrder)

	_, err = svc.Cancel(o.Number)
	require.NoError(t, err)

	_, err = svc.Validate(o.Number)
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestCancel_Open(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	svc := newService(newCatalog(t, p1))
	o := openOrder(t, svc)
	_, err := svc.AddLine(o.Number, "P1", 2)
	require.NoError(t, err)

	res, err := svc.Cancel(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, res.PreviousStatus)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Empty(t, res.Restored)
	assert.Equal(t, 5, p1.Stock)
}

func TestCancel_ValidatedRestoresStock(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "2.00", 9)
	svc := newService(newCatalog(t, p1, p2))
	o := openOrder(t, svc)
	_, err := svc.AddLine(o.Number, "P1", 4)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 6)
	require.NoError(t, err)

	_, err = svc.Validate(o.Number)
	require.NoError(t, err)

	res, err := svc.Cancel(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, res.PreviousStatus)
	assert.Len(t, res.Restored, 2)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 5, p1.Stock)
	assert.Equal(t, 9, p2.Stock)
}

func TestCancel_DeletedProductIsSkipped(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "2.00", 9)
	catalog := newCatalog(t, p1, p2)
	svc := newService(catalog)
	o := openOrder(t, svc)
	_, err := svc.AddLine(o.Number, "P1", 1)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 2)
	require.NoError(t, err)
	_, err = svc.Validate(o.Number)
	require.NoError(t, err)

	delete(catalog.products, "P1")

	res, err := svc.Cancel(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, RestoreSkipped{Number: o.Number, ProductRef: "P1", Quantity: 1}, res.Skipped[0])
	assert.Equal(t, 9, p2.Stock)
}

func TestCancel_Idempotent(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	svc := newService(newCatalog(t, p1))
	o := openOrder(t, svc)
	_, err := svc.AddLine(o.Number, "P1", 2)
	require.NoError(t, err)
	_, err = svc.Validate(o.Number)
	require.NoError(t, err)

	_, err = svc.Cancel(o.Number)
	require.NoError(t, err)
	res, err := svc.Cancel(o.Number)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, res.PreviousStatus)
	assert.Empty(t, res.Restored)
	assert.Equal(t, 5, p1.Stock)

	_, err = svc.Cancel("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReceipt(t *testing.T) {
	p1 := newProduct(t, "P1", "10.00", 5)
	p2 := newProduct(t, "P2", "2.50", 5)
	catalog := newCatalog(t, p1, p2)
	svc := newService(catalog)
	o := openOrder(t, svc)
	_, err := svc.AddLine(o.Number, "P1", 1)
	require.NoError(t, err)
	_, err = svc.AddLine(o.Number, "P2", 2)
	require.NoError(t, err)

	delete(catalog.products, "P2")

	r, err := svc.Receipt(o.Number)
	require.NoError(t, err)
	assert.Equal(t, "Sara Alaoui", r.ClientName)
	require.Len(t, r.Lines, 2)
	assert.Equal(t, "Item P1", r.Lines[0].ProductName)
	assert.Equal(t, UnknownProduct, r.Lines[1].ProductName)
	assert.True(t, d("5.00").Equal(r.Lines[1].Amount))
	assert.True(t, d("15.00").Equal(r.Total))
	assert.Equal(t, StatusOpen, o.Status)

	delete(catalog.clients, "C1")
	r, err = svc.Receipt(o.Number)
	require.NoError(t, err)
	assert.Equal(t, UnknownClient, r.ClientName)

	_, err = svc.Receipt("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEndToEnd(t *testing.T) {
	p1 := newProduct(t, "P1", "10.0", 5)
	svc := newService(newCatalog(t, p1))

	o, err := svc.CreateOrder("C1")
	require.NoError(t, err)

	_, err = svc.AddLine(o.Number, "P1", 3)
	require.NoError(t, err)
	assert.True(t, d("30.0").Equal(o.Total))
	assert.Equal(t, 5, p1.Stock)

	_, err = svc.Validate(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, o.Status)
	assert.Equal(t, 2, p1.Stock)

	_, err = svc.Cancel(o.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 5, p1.Stock)
}
