package order

import (
	"context"
	"time"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/pricing"
	"github.com/xenking/shopagent/internal/domain/profile"
)

// Status values for a persisted order.
const (
	StatusPaid = "paid"
)

// Record is the persisted summary of a captured order. It is written after
// the payment has already been captured, so it is a receipt, not a source
// of truth for money movement.
type Record struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Items           []cart.Item     `json:"items"`
	Totals          pricing.Totals  `json:"totals"`
	ShippingAddress profile.Address `json:"shipping_address"`
	PaymentRef      string          `json:"payment_ref"`
	Note            string          `json:"note,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Repository defines persistence operations for order records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
}
