package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, price string, qty int) Item {
	return Item{
		ProductID: id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestMerge_IncrementsExistingLine(t *testing.T) {
	c := &Cart{OwnerID: "u1", Items: []Item{item("p1", "10.00", 2)}}

	c.Merge([]Item{item("p1", "10.00", 3), item("p2", "5.50", 1)})

	require.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Find("p1").Quantity)
	assert.Equal(t, 1, c.Find("p2").Quantity)
}

func TestRemove_DecrementAndDelete(t *testing.T) {
	c := &Cart{OwnerID: "u1", Items: []Item{
		item("p1", "10.00", 3),
		item("p2", "5.00", 1),
	}}

	report := c.Remove([]Removal{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 5},
		{ProductID: "ghost", Quantity: 1},
	})

	assert.Equal(t, []string{"p1", "p2"}, report.Removed)
	assert.Equal(t, []string{"ghost"}, report.NotFound)
	assert.Equal(t, 2, c.Find("p1").Quantity)
	assert.Nil(t, c.Find("p2"))
}

func TestRemove_RemoveAllDeletesLine(t *testing.T) {
	c := &Cart{OwnerID: "u1", Items: []Item{item("p1", "10.00", 7)}}

	report := c.Remove([]Removal{{ProductID: "p1", RemoveAll: true}})

	assert.Equal(t, []string{"p1"}, report.Removed)
	assert.True(t, c.IsEmpty())
}

func TestSubtotal_RoundedAtEnd(t *testing.T) {
	c := &Cart{Items: []Item{
		item("p1", "0.333", 3),
		item("p2", "0.333", 3),
	}}

	// 0.999 + 0.999 = 1.998 -> 2.00; per-line rounding would give 2.00 too,
	// but from 1.00 + 1.00. The distinction matters for the invariant that
	// the subtotal is rounded once, at the end.
	assert.True(t, decimal.RequireFromString("2.00").Equal(c.Subtotal()))
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := &Cart{Items: []Item{
		item("p1", "10.00", 2),
		item("p2", "5.00", 1),
		item("p3", "1.25", 4),
	}}
	b := &Cart{Items: []Item{
		item("p3", "1.25", 4),
		item("p1", "10.00", 2),
		item("p2", "5.00", 1),
	}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_PriceNormalization(t *testing.T) {
	a := &Cart{Items: []Item{item("p1", "10", 1)}}
	b := &Cart{Items: []Item{item("p1", "10.00", 1)}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_Sensitivity(t *testing.T) {
	base := &Cart{Items: []Item{item("p1", "10.00", 2), item("p2", "5.00", 1)}}
	fp := Fingerprint(base)

	tests := []struct {
		name string
		c    *Cart
	}{
		{"quantity changed", &Cart{Items: []Item{item("p1", "10.00", 3), item("p2", "5.00", 1)}}},
		{"price changed", &Cart{Items: []Item{item("p1", "9.99", 2), item("p2", "5.00", 1)}}},
		{"item removed", &Cart{Items: []Item{item("p1", "10.00", 2)}}},
		{"item added", &Cart{Items: []Item{item("p1", "10.00", 2), item("p2", "5.00", 1), item("p3", "1.00", 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, fp, Fingerprint(tt.c))
		})
	}
}
