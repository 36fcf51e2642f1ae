package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		label   string
		want    Status
		wantErr bool
	}{
		{label: "En Cours", want: StatusOpen},
		{label: "Validée", want: StatusValidated},
		{label: "Annulée", want: StatusCancelled},
		{label: "", want: StatusOpen},
		{label: "validated", want: StatusValidated},
		{label: "Livrée", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseStatus(tt.label)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.Label()))
		})
	}
}

func mustParse(t *testing.T, label string) Status {
	t.Helper()
	s, err := ParseStatus(label)
	require.NoError(t, err)
	return s
}

func TestRestore(t *testing.T) {
	seed := Order{
		Number:   "CMD-1",
		ClientID: "C1",
		Lines: []Line{
			{ProductRef: "P1", Quantity: 3, UnitPrice: d("0.1")},
			{ProductRef: "P2", Quantity: 1, UnitPrice: d("9.99")},
		},
		// Float noise from older files must not be reported.
		Total:  d("10.290000000000001"),
		Status: StatusValidated,
	}

	o, mismatch := Restore(seed)
	assert.Nil(t, mismatch)
	assert.True(t, d("10.29").Equal(o.Total))
	assert.Equal(t, StatusValidated, o.Status)

	seed.Total = d("99")
	o, mismatch = Restore(seed)
	require.NotNil(t, mismatch)
	assert.True(t, d("10.29").Equal(o.Total), "computed total wins")
	assert.True(t, d("99").Equal(mismatch.Stored))
	assert.Contains(t, mismatch.String(), "CMD-1")
}

func TestBook(t *testing.T) {
	b := NewBook()
	mismatches, skipped := b.Load([]Order{
		{Number: "A", ClientID: "C1", Status: StatusCancelled, Lines: []Line{{ProductRef: "P1", Quantity: 1, UnitPrice: d("1")}}, Total: d("1")},
		{Number: "B", ClientID: "C2", Status: StatusValidated, Lines: []Line{{ProductRef: "P2", Quantity: 2, UnitPrice: d("1")}}, Total: d("5")},
		{Number: "A", ClientID: "C9", Status: StatusOpen, Total: d("7")},
	})
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrDuplicateNumber)
	require.Len(t, mismatches, 1, "skipped duplicates are not reported as mismatches")
	assert.Equal(t, "B", mismatches[0].Number)
	first, _ := b.Get("A")
	assert.Equal(t, "C1", first.ClientID)

	_, used := b.ProductInUse("P1")
	assert.False(t, used, "cancelled orders do not hold references")
	number, used := b.ProductInUse("P2")
	assert.True(t, used)
	assert.Equal(t, "B", number)

	_, active := b.ClientHasActiveOrder("C1")
	assert.False(t, active)
	_, active = b.ClientHasActiveOrder("C2")
	assert.True(t, active)

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	snap[1].Lines[0].Quantity = 100
	o, _ := b.Get("B")
	assert.Equal(t, 2, o.Lines[0].Quantity)

	require.NoError(t, b.add(New("C", "C1", time.Now())))
	assert.ErrorIs(t, b.add(New("C", "C1", time.Now())), ErrDuplicateNumber)
	assert.Len(t, b.All(), 3)
}
