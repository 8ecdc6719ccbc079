package profile

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no shipping profile exists for an identity.
var ErrNotFound = errors.New("shipping profile not found")

// Address is a shopper's shipping destination.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Repository stores one shipping profile per owner identity.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*Address, error)
	Save(ctx context.Context, ownerID string, addr *Address) error
}
