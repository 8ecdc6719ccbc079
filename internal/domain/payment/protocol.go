package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/pricing"
)

// DefaultHoldTTL bounds how long an authorized-but-uncaptured charge can
// exist before capture is refused.
const DefaultHoldTTL = 30 * time.Minute

// Protocol creates, validates, and captures cart-bound payment holds.
type Protocol struct {
	gateway   Gateway
	customers CustomerStore
	holdTTL   time.Duration
	now       func() time.Time
}

// NewProtocol creates a Protocol with the default 30 minute hold TTL.
func NewProtocol(gateway Gateway, customers CustomerStore) *Protocol {
	return &Protocol{
		gateway:   gateway,
		customers: customers,
		holdTTL:   DefaultHoldTTL,
		now:       time.Now,
	}
}

// Authorize reserves totals.Total for the identity against the current cart
// state. When instrumentID is empty the customer's stored default instrument
// is used; supplying one explicitly follows the identical fingerprint,
// expiry, and ownership rules.
func (p *Protocol) Authorize(ctx context.Context, c *cart.Cart, totals pricing.Totals, ownerID, instrumentID string) (*Authorization, error) {
	customerID, err := p.resolveCustomer(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if instrumentID == "" {
		instrumentID, err = p.gateway.DefaultInstrument(ctx, customerID)
		if err != nil {
			if errors.Is(err, ErrNoPaymentMethod) {
				return nil, ErrNoPaymentMethod
			}
			return nil, errors.Wrap(err, "resolve default instrument")
		}
	}

	now := p.now().UTC()
	expiresAt := now.Add(p.holdTTL)
	fingerprint := cart.Fingerprint(c)

	hold, err := p.gateway.CreateHold(ctx, HoldRequest{
		CustomerID:   customerID,
		InstrumentID: instrumentID,
		Amount:       totals.Total,
		Currency:     totals.Currency,
		Metadata: map[string]string{
			metaOwner:       ownerID,
			metaFingerprint: fingerprint,
			metaCreatedAt:   now.Format(time.RFC3339),
			metaExpiresAt:   expiresAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create hold")
	}

	return &Authorization{
		ID:              hold.ID,
		OwnerID:         ownerID,
		Amount:          hold.Amount,
		Currency:        hold.Currency,
		CartFingerprint: fingerprint,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
	}, nil
}

// CaptureOrReject captures the hold in full after verifying, in order:
// existence, ownership, non-terminal status, expiry, and that the current
// cart still matches the fingerprint the hold was authorized against. The
// fingerprint check is the defense against capturing a charge authorized
// for one cart state against a different one.
func (p *Protocol) CaptureOrReject(ctx context.Context, holdID string, c *cart.Cart, ownerID string) (*CaptureResult, error) {
	hold, err := p.gateway.RetrieveHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, errors.Wrap(err, "retrieve hold")
	}

	// Ownership first: a leaked hold ID must not reveal anything about the
	// hold's state to another account.
	if hold.Metadata[metaOwner] != ownerID {
		return nil, ErrUnauthorized
	}

	if hold.Status.Terminal() {
		return nil, errors.Wrap(ErrHoldNotFound, "hold already consumed")
	}

	expiresAt, err := time.Parse(time.RFC3339, hold.Metadata[metaExpiresAt])
	if err != nil {
		return nil, errors.Wrap(err, "parse hold expiry")
	}
	if p.now().After(expiresAt) {
		return nil, ErrExpired
	}

	if cart.Fingerprint(c) != hold.Metadata[metaFingerprint] {
		return nil, ErrCartChanged
	}

	if hold.RequiresConfirmation {
		if err := p.gateway.ConfirmIfRequired(ctx, hold.ID); err != nil {
			return nil, errors.Wrap(err, "confirm hold")
		}
	}

	outcome, err := p.gateway.Capture(ctx, hold.ID)
	if err != nil {
		var captureErr *CaptureError
		if errors.As(err, &captureErr) {
			return nil, captureErr
		}
		return nil, errors.Wrap(err, "capture hold")
	}

	return &CaptureResult{
		HoldID:        hold.ID,
		TransactionID: outcome.TransactionID,
		Amount:        outcome.Amount,
		Currency:      outcome.Currency,
	}, nil
}

// ValidateHold returns the hold's validation view for the requesting
// identity, or ownership/expiry rejections.
func (p *Protocol) ValidateHold(ctx context.Context, holdID, ownerID string) (*HoldValidation, error) {
	hold, err := p.gateway.RetrieveHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, ErrHoldNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, errors.Wrap(err, "retrieve hold")
	}

	if hold.Metadata[metaOwner] != ownerID {
		return nil, ErrUnauthorized
	}

	expiresAt, err := time.Parse(time.RFC3339, hold.Metadata[metaExpiresAt])
	if err != nil {
		return nil, errors.Wrap(err, "parse hold expiry")
	}

	return &HoldValidation{
		Valid:           !hold.Status.Terminal() && !p.now().After(expiresAt),
		Amount:          hold.Amount,
		Currency:        hold.Currency,
		Status:          hold.Status,
		ExpiresAt:       expiresAt,
		CartFingerprint: hold.Metadata[metaFingerprint],
	}, nil
}

// HasInstrument reports whether the identity has any payment instrument
// available for checkout.
func (p *Protocol) HasInstrument(ctx context.Context, ownerID string) (bool, error) {
	customerID, err := p.resolveCustomer(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if _, err := p.gateway.DefaultInstrument(ctx, customerID); err != nil {
		if errors.Is(err, ErrNoPaymentMethod) {
			return false, nil
		}
		return false, errors.Wrap(err, "resolve default instrument")
	}
	return true, nil
}

// resolveCustomer returns the gateway customer for the identity, registering
// one on first use.
func (p *Protocol) resolveCustomer(ctx context.Context, ownerID string) (string, error) {
	customerID, err := p.customers.Get(ctx, ownerID)
	if err == nil {
		return customerID, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return "", errors.Wrap(err, "lookup gateway customer")
	}

	customerID, err = p.gateway.CreateCustomer(ctx, ownerID)
	if err != nil {
		return "", errors.Wrap(err, "create gateway customer")
	}
	if err := p.customers.Save(ctx, ownerID, customerID); err != nil {
		return "", errors.Wrap(err, "save gateway customer")
	}
	return customerID, nil
}
