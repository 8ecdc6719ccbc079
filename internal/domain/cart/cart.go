package cart

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Item is a single cart line: one product at a unit price with a quantity.
type Item struct {
	ProductID string          `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Cart is a snapshot of a shopper's cart. Items are keyed by ProductID:
// a product appears in at most one line.
type Cart struct {
	OwnerID string
	Items   []Item
}

// Removal describes one requested line removal.
type Removal struct {
	ProductID string
	Quantity  int
	RemoveAll bool
}

// RemovalReport lists which removals changed the cart and which referenced
// products that were not in it. Absent products are not an error: the agent
// reports them back to the shopper.
type RemovalReport struct {
	Removed  []string
	NotFound []string
}

// Repository stores one cart per owner identity.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, ownerID string) error
}

// Find returns the line for the given product, or nil.
func (c *Cart) Find(productID string) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Merge folds items into the cart. An existing line's quantity is
// incremented, not replaced; new products are appended.
func (c *Cart) Merge(items []Item) {
	for _, it := range items {
		if line := c.Find(it.ProductID); line != nil {
			line.Quantity += it.Quantity
			continue
		}
		c.Items = append(c.Items, it)
	}
}

// Remove applies the requested removals. A line is deleted entirely when
// RemoveAll is set or the requested quantity reaches the current quantity;
// otherwise the quantity is decremented.
func (c *Cart) Remove(removals []Removal) RemovalReport {
	var report RemovalReport
	for _, rm := range removals {
		line := c.Find(rm.ProductID)
		if line == nil {
			report.NotFound = append(report.NotFound, rm.ProductID)
			continue
		}
		if rm.RemoveAll || rm.Quantity >= line.Quantity {
			c.delete(rm.ProductID)
		} else {
			line.Quantity -= rm.Quantity
		}
		report.Removed = append(report.Removed, rm.ProductID)
	}
	return report
}

func (c *Cart) delete(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Subtotal returns the sum of unit price times quantity over all lines,
// rounded to 2 decimal places at the end, not per line.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

// sortedItems returns the cart lines ordered by product ID. Used by the
// fingerprint so insertion order never matters.
func (c *Cart) sortedItems() []Item {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID < items[j].ProductID
	})
	return items
}
