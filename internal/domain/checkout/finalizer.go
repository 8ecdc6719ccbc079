// Package checkout drives the order finalization sequence: validate
// prerequisites, compute totals, authorize, capture, record, clear.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/order"
	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/domain/pricing"
	"github.com/xenking/shopagent/internal/domain/profile"
)

// Sentinel errors for checkout prerequisites.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrIncompleteProfile = errors.New("shipping address is missing")
	// ErrPreviewRequired is returned when complete is attempted without a
	// recent preview. The preview requirement is enforced here, not just in
	// the system prompt, so it does not depend on the model's compliance.
	ErrPreviewRequired = errors.New("order must be previewed before checkout")
	// ErrNoPreview is returned by PreviewStore.Get for identities that have
	// not previewed.
	ErrNoPreview = errors.New("no preview recorded")
)

// PreviewTTL is how long a recorded preview authorizes a checkout attempt.
const PreviewTTL = 15 * time.Minute

// PaymentProtocol is the slice of the payment protocol the finalizer needs.
type PaymentProtocol interface {
	Authorize(ctx context.Context, c *cart.Cart, totals pricing.Totals, ownerID, instrumentID string) (*payment.Authorization, error)
	CaptureOrReject(ctx context.Context, holdID string, c *cart.Cart, ownerID string) (*payment.CaptureResult, error)
	HasInstrument(ctx context.Context, ownerID string) (bool, error)
}

// PreviewStore records when an identity last previewed its order.
type PreviewStore interface {
	Set(ctx context.Context, ownerID string, at time.Time) error
	Get(ctx context.Context, ownerID string) (time.Time, error)
}

// PreviewResult is the read-only order preview shown before checkout.
type PreviewResult struct {
	Items            []cart.Item      `json:"items"`
	Totals           pricing.Totals   `json:"totals"`
	ShippingAddress  *profile.Address `json:"shipping_address,omitempty"`
	HasPaymentMethod bool             `json:"has_payment_method"`
	ReadyForCheckout bool             `json:"ready_for_checkout"`
}

// CompleteResult is returned after a successful capture.
type CompleteResult struct {
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// Finalizer encapsulates the checkout sequence.
type Finalizer struct {
	carts      cart.Repository
	profiles   profile.Repository
	orders     order.Repository
	protocol   PaymentProtocol
	previews   PreviewStore
	strategies pricing.Strategies
	log        *zap.Logger
	now        func() time.Time
}

// NewFinalizer creates a Finalizer with the required collaborators.
func NewFinalizer(
	carts cart.Repository,
	profiles profile.Repository,
	orders order.Repository,
	protocol PaymentProtocol,
	previews PreviewStore,
	strategies pricing.Strategies,
	log *zap.Logger,
) *Finalizer {
	return &Finalizer{
		carts:      carts,
		profiles:   profiles,
		orders:     orders,
		protocol:   protocol,
		previews:   previews,
		strategies: strategies,
		log:        log,
		now:        time.Now,
	}
}

// Preview computes the order totals for the current cart and reports whether
// checkout prerequisites are met. A successful preview records a marker that
// Complete requires within PreviewTTL.
func (f *Finalizer) Preview(ctx context.Context, ownerID string) (*PreviewResult, error) {
	c, err := f.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	addr, err := f.profiles.Get(ctx, ownerID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, errors.Wrap(err, "get shipping profile")
	}

	hasInstrument, err := f.protocol.HasInstrument(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "check payment method")
	}

	totals, err := pricing.ComputeTotals(ctx, c, addr, f.strategies)
	if err != nil {
		return nil, errors.Wrap(err, "compute totals")
	}

	if err := f.previews.Set(ctx, ownerID, f.now()); err != nil {
		return nil, errors.Wrap(err, "record preview")
	}

	return &PreviewResult{
		Items:            c.Items,
		Totals:           totals,
		ShippingAddress:  addr,
		HasPaymentMethod: hasInstrument,
		ReadyForCheckout: addr != nil && hasInstrument,
	}, nil
}

// Complete runs the full checkout: prerequisites, totals, authorize, capture,
// record, clear. Capture failures leave the cart untouched so the shopper
// can retry without re-adding items. Order persistence failure after a
// successful capture is logged and does not reverse or re-report the
// payment; that at-least-once gap between money captured and order recorded
// is accepted.
func (f *Finalizer) Complete(ctx context.Context, ownerID, note string) (*CompleteResult, error) {
	c, err := f.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	addr, err := f.profiles.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrIncompleteProfile
		}
		return nil, errors.Wrap(err, "get shipping profile")
	}

	hasInstrument, err := f.protocol.HasInstrument(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "check payment method")
	}
	if !hasInstrument {
		return nil, payment.ErrNoPaymentMethod
	}

	previewedAt, err := f.previews.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNoPreview) {
			return nil, ErrPreviewRequired
		}
		return nil, errors.Wrap(err, "check preview")
	}
	if f.now().Sub(previewedAt) > PreviewTTL {
		return nil, ErrPreviewRequired
	}

	totals, err := pricing.ComputeTotals(ctx, c, addr, f.strategies)
	if err != nil {
		return nil, errors.Wrap(err, "compute totals")
	}

	auth, err := f.protocol.Authorize(ctx, c, totals, ownerID, "")
	if err != nil {
		return nil, err
	}

	captured, err := f.protocol.CaptureOrReject(ctx, auth.ID, c, ownerID)
	if err != nil {
		return nil, err
	}

	rec := &order.Record{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		Items:           c.Items,
		Totals:          totals,
		ShippingAddress: *addr,
		PaymentRef:      captured.TransactionID,
		Note:            note,
		Status:          order.StatusPaid,
		CreatedAt:       f.now().UTC(),
	}
	if err := f.orders.Create(ctx, rec); err != nil {
		f.log.Error("order persistence failed after capture",
			zap.String("order_id", rec.ID),
			zap.String("hold_id", captured.HoldID),
			zap.String("transaction_id", captured.TransactionID),
			zap.Error(err),
		)
	}

	if err := f.carts.Clear(ctx, ownerID); err != nil {
		f.log.Error("cart clear failed after capture",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}

	return &CompleteResult{
		OrderID:       rec.ID,
		TransactionID: captured.TransactionID,
		Amount:        captured.Amount,
		Currency:      captured.Currency,
	}, nil
}
