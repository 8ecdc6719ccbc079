package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Currency is the single currency this store trades in.
const Currency = "USD"

// FlatRateTax applies a fixed percentage of the subtotal.
type FlatRateTax struct {
	Rate decimal.Decimal
}

// DefaultTax returns the stock 8% flat-rate tax strategy.
func DefaultTax() FlatRateTax {
	return FlatRateTax{Rate: decimal.RequireFromString("0.08")}
}

func (t FlatRateTax) Tax(_ context.Context, in RateInput) (decimal.Decimal, error) {
	return in.Subtotal.Mul(t.Rate), nil
}

// ThresholdShipping charges a flat fee below a free-shipping subtotal
// threshold and nothing at or above it.
type ThresholdShipping struct {
	FreeAbove decimal.Decimal
	Fee       decimal.Decimal
}

// DefaultShipping returns the stock $9.99-under-$50 shipping strategy.
func DefaultShipping() ThresholdShipping {
	return ThresholdShipping{
		FreeAbove: decimal.NewFromInt(50),
		Fee:       decimal.RequireFromString("9.99"),
	}
}

func (s ThresholdShipping) Shipping(_ context.Context, in RateInput) (decimal.Decimal, error) {
	if in.Subtotal.GreaterThanOrEqual(s.FreeAbove) {
		return decimal.Zero, nil
	}
	return s.Fee, nil
}
