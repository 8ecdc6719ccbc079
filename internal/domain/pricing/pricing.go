// Package pricing computes order totals from a cart snapshot using pluggable
// tax and shipping strategies.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/profile"
)

// Totals holds the computed monetary breakdown of an order. Each component
// is rounded to 2 decimal places independently, so Total always equals
// Subtotal + Tax + Shipping exactly.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// RateInput is what strategies see: the rounded subtotal, the shipping
// address when known, and the cart lines.
type RateInput struct {
	Subtotal decimal.Decimal
	Address  *profile.Address
	Items    []cart.Item
}

// TaxStrategy computes the tax amount for an order. Implementations may call
// remote rate services, so they take a context.
type TaxStrategy interface {
	Tax(ctx context.Context, in RateInput) (decimal.Decimal, error)
}

// ShippingStrategy computes the shipping cost for an order.
type ShippingStrategy interface {
	Shipping(ctx context.Context, in RateInput) (decimal.Decimal, error)
}

// Strategies bundles the pluggable rate calculators. Nil fields fall back to
// the defaults below.
type Strategies struct {
	Tax      TaxStrategy
	Shipping ShippingStrategy
}

// ComputeTotals derives the order totals for the given cart and address.
// Totals are never persisted as a source of truth; callers recompute them
// from the cart at the moment they are needed.
func ComputeTotals(ctx context.Context, c *cart.Cart, addr *profile.Address, s Strategies) (Totals, error) {
	if s.Tax == nil {
		s.Tax = DefaultTax()
	}
	if s.Shipping == nil {
		s.Shipping = DefaultShipping()
	}

	subtotal := c.Subtotal()
	in := RateInput{Subtotal: subtotal, Address: addr, Items: c.Items}

	tax, err := s.Tax.Tax(ctx, in)
	if err != nil {
		return Totals{}, errors.Wrap(err, "tax strategy")
	}
	shipping, err := s.Shipping.Shipping(ctx, in)
	if err != nil {
		return Totals{}, errors.Wrap(err, "shipping strategy")
	}

	tax = tax.Round(2)
	shipping = shipping.Round(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
		Currency: Currency,
	}, nil
}
