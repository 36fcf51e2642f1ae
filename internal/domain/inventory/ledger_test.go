package inventory

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopledger/internal/domain/product"
)

func newProduct(t *testing.T, stock int) *product.Product {
	t.Helper()
	p, err := product.New("P1", "Widget", decimal.NewFromInt(10), stock)
	require.NoError(t, err)
	return p
}

func TestAdjust_Withdraw(t *testing.T) {
	l := NewLedger()
	p := newProduct(t, 5)

	m, err := l.Adjust(p, -3, ReasonValidation, "CMD-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
	assert.Equal(t, 5, m.Before)
	assert.Equal(t, 2, m.After)
	assert.Equal(t, "CMD-1", m.Order)
	assert.Len(t, l.Movements(), 1)
}

func TestAdjust_InsufficientLeavesStockUnchanged(t *testing.T) {
	for _, stock := range []int{0, 1, 7, 100} {
		l := NewLedger()
		p := newProduct(t, stock)

		_, err := l.Adjust(p, -p.Stock-1, ReasonValidation, "")

		require.ErrorIs(t, err, ErrInsufficientStock)
		var isErr *InsufficientStockError
		require.ErrorAs(t, err, &isErr)
		assert.Equal(t, stock, isErr.Available)
		assert.Equal(t, stock+1, isErr.Requested)
		assert.Equal(t, stock, p.Stock)
		assert.Empty(t, l.Movements())
	}
}

func TestAdjust_Restore(t *testing.T) {
	l := NewLedger()
	p := newProduct(t, 0)

	_, err := l.Adjust(p, 4, ReasonCancel, "CMD-1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
}

func TestAdjust_DrainToZero(t *testing.T) {
	l := NewLedger()
	p := newProduct(t, 3)

	_, err := l.Adjust(p, -3, ReasonValidation, "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestMovementsIsCopy(t *testing.T) {
	l := NewLedger()
	p := newProduct(t, 3)
	_, err := l.Adjust(p, -1, ReasonValidation, "")
	require.NoError(t, err)

	ms := l.Movements()
	ms[0].Delta = 99
	assert.Equal(t, -1, l.Movements()[0].Delta)
}

func TestAdjust_RejectsOverflow(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		delta int
	}{
		{name: "min int withdrawal", stock: 5, delta: math.MinInt},
		{name: "restore past max int", stock: math.MaxInt - 1, delta: 2},
		{name: "max int restore on stock", stock: 1, delta: math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			p := newProduct(t, tt.stock)

			_, err := l.Adjust(p, tt.delta, ReasonCancel, "CMD-1")
			require.ErrorIs(t, err, ErrInvalidQuantity)
			assert.Equal(t, tt.stock, p.Stock)
			assert.Empty(t, l.Movements())
		})
	}
}

func TestCheckAdditional(t *testing.T) {
	p := newProduct(t, 5)

	require.NoError(t, CheckAdditional(p, 2, 3))
	require.ErrorIs(t, CheckAdditional(p, 3, 3), ErrInsufficientStock)
	require.ErrorIs(t, Check(p, -1), ErrInvalidQuantity)
	require.ErrorIs(t, CheckAdditional(p, -1, 1), ErrInvalidQuantity)

	err := CheckAdditional(p, 1, math.MaxInt)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, math.MaxInt, isErr.Requested, "requested saturates instead of wrapping")
	assert.Equal(t, 5, p.Stock)
}
