// Package payment implements the cart-bound payment authorization protocol:
// a manual-capture hold is created against an exact cart fingerprint and may
// be captured only by its owner, before expiry, against an unchanged cart.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for protocol rejections.
var (
	ErrNoPaymentMethod = errors.New("no payment method on file")
	ErrHoldNotFound    = errors.New("payment hold not found")
	ErrUnauthorized    = errors.New("hold belongs to a different identity")
	ErrExpired         = errors.New("hold has expired")
	ErrCartChanged     = errors.New("cart changed since authorization")
)

// CaptureError carries the gateway-reported reason for a terminal capture
// failure (decline, insufficient funds, and so on).
type CaptureError struct {
	Reason string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %s", e.Reason)
}

// HoldStatus is the gateway-side lifecycle state of a hold.
type HoldStatus string

const (
	// StatusRequiresCapture means funds are reserved and the hold can still
	// be captured or released.
	StatusRequiresCapture HoldStatus = "requires_capture"
	// StatusCaptured and StatusCanceled are terminal.
	StatusCaptured HoldStatus = "captured"
	StatusCanceled HoldStatus = "canceled"
)

// Terminal reports whether the hold can no longer be captured.
func (s HoldStatus) Terminal() bool {
	return s == StatusCaptured || s == StatusCanceled
}

// Metadata keys embedded on every hold. The gateway treats them as opaque;
// the protocol reads them back at capture time.
const (
	metaOwner       = "owner_id"
	metaFingerprint = "cart_fingerprint"
	metaCreatedAt   = "created_at"
	metaExpiresAt   = "expires_at"
)

// Authorization is the protocol's view of a created hold.
type Authorization struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CartFingerprint string          `json:"cart_fingerprint"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// CaptureResult is returned on a successful capture.
type CaptureResult struct {
	HoldID        string          `json:"hold_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// HoldValidation is the read-only validation surface for a hold.
type HoldValidation struct {
	Valid           bool            `json:"valid"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          HoldStatus      `json:"status"`
	ExpiresAt       time.Time       `json:"expires_at"`
	CartFingerprint string          `json:"cart_fingerprint"`
}

// Hold is the gateway-side representation retrieved or created via the port.
type Hold struct {
	ID                   string
	Amount               decimal.Decimal
	Currency             string
	Status               HoldStatus
	Metadata             map[string]string
	RequiresConfirmation bool
}

// HoldRequest describes a manual-capture hold to create.
type HoldRequest struct {
	CustomerID   string
	InstrumentID string
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
}

// CaptureOutcome is what the gateway reports after capturing a hold.
type CaptureOutcome struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
}

// Gateway is the port a concrete payment provider implements. The protocol
// depends only on this interface, never on a provider's own semantics.
type Gateway interface {
	// CreateCustomer registers a gateway customer for the identity.
	CreateCustomer(ctx context.Context, ownerID string) (customerID string, err error)
	// DefaultInstrument resolves the customer's stored default payment
	// instrument. Returns ErrNoPaymentMethod when none exists.
	DefaultInstrument(ctx context.Context, customerID string) (instrumentID string, err error)
	// CreateHold reserves funds in manual-capture mode.
	CreateHold(ctx context.Context, req HoldRequest) (*Hold, error)
	// ConfirmIfRequired performs the provider's confirmation step when the
	// hold demands one before capture.
	ConfirmIfRequired(ctx context.Context, holdID string) error
	// Capture transfers the full authorized amount. Terminal declines are
	// reported as *CaptureError.
	Capture(ctx context.Context, holdID string) (*CaptureOutcome, error)
	// RetrieveHold fetches a hold by ID. Returns ErrHoldNotFound for unknown
	// or already-consumed IDs the provider no longer exposes.
	RetrieveHold(ctx context.Context, holdID string) (*Hold, error)
}

// CustomerStore maps owner identities to gateway customer IDs so a shopper
// is registered with the provider at most once.
type CustomerStore interface {
	Get(ctx context.Context, ownerID string) (customerID string, err error)
	Save(ctx context.Context, ownerID, customerID string) error
}

// ErrCustomerNotFound is returned by CustomerStore.Get for unknown owners.
var ErrCustomerNotFound = errors.New("gateway customer not found")
