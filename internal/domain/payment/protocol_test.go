package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/pricing"
)

// --- Fakes ---

type fakeGateway struct {
	holds          map[string]*Hold
	nextHoldID     int
	defaultInstr   string
	captureDecline string
	confirmed      []string
	customers      int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		holds:        make(map[string]*Hold),
		defaultInstr: "pm_default",
	}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _ string) (string, error) {
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) DefaultInstrument(_ context.Context, _ string) (string, error) {
	if g.defaultInstr == "" {
		return "", ErrNoPaymentMethod
	}
	return g.defaultInstr, nil
}

func (g *fakeGateway) CreateHold(_ context.Context, req HoldRequest) (*Hold, error) {
	g.nextHoldID++
	h := &Hold{
		ID:       fmt.Sprintf("hold_%d", g.nextHoldID),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   StatusRequiresCapture,
		Metadata: req.Metadata,
	}
	g.holds[h.ID] = h
	return h, nil
}

func (g *fakeGateway) ConfirmIfRequired(_ context.Context, holdID string) error {
	g.confirmed = append(g.confirmed, holdID)
	return nil
}

func (g *fakeGateway) Capture(_ context.Context, holdID string) (*CaptureOutcome, error) {
	h, ok := g.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	if g.captureDecline != "" {
		return nil, &CaptureError{Reason: g.captureDecline}
	}
	h.Status = StatusCaptured
	return &CaptureOutcome{
		TransactionID: "txn_" + holdID,
		Amount:        h.Amount,
		Currency:      h.Currency,
	}, nil
}

func (g *fakeGateway) RetrieveHold(_ context.Context, holdID string) (*Hold, error) {
	h, ok := g.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	return h, nil
}

type fakeCustomerStore struct {
	byOwner map[string]string
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{byOwner: make(map[string]string)}
}

func (s *fakeCustomerStore) Get(_ context.Context, ownerID string) (string, error) {
	id, ok := s.byOwner[ownerID]
	if !ok {
		return "", ErrCustomerNotFound
	}
	return id, nil
}

func (s *fakeCustomerStore) Save(_ context.Context, ownerID, customerID string) error {
	s.byOwner[ownerID] = customerID
	return nil
}

// --- Helpers ---

func testCart(items ...cart.Item) *cart.Cart {
	return &cart.Cart{OwnerID: "u1", Items: items}
}

func line(id, price string, qty int) cart.Item {
	return cart.Item{ProductID: id, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func testTotals(total string) pricing.Totals {
	return pricing.Totals{
		Total:    decimal.RequireFromString(total),
		Currency: pricing.Currency,
	}
}

func newTestProtocol(g Gateway) *Protocol {
	return NewProtocol(g, newFakeCustomerStore())
}

// --- Tests ---

func TestAuthorize_CreatesCustomerOnce(t *testing.T) {
	gw := newFakeGateway()
	store := newFakeCustomerStore()
	p := NewProtocol(gw, store)
	c := testCart(line("p1", "10.00", 2))

	_, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)
	_, err = p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, 1, gw.customers)
	assert.Equal(t, "cus_1", store.byOwner["u1"])
}

func TestAuthorize_NoPaymentMethod(t *testing.T) {
	gw := newFakeGateway()
	gw.defaultInstr = ""
	p := newTestProtocol(gw)

	_, err := p.Authorize(context.Background(), testCart(line("p1", "10.00", 1)), testTotals("20.79"), "u1", "")
	require.ErrorIs(t, err, ErrNoPaymentMethod)
	assert.Empty(t, gw.holds)
}

func TestAuthorize_ExplicitInstrumentSkipsDefault(t *testing.T) {
	gw := newFakeGateway()
	gw.defaultInstr = ""
	p := newTestProtocol(gw)

	auth, err := p.Authorize(context.Background(), testCart(line("p1", "10.00", 1)), testTotals("20.79"), "u1", "pm_explicit")
	require.NoError(t, err)
	assert.NotEmpty(t, auth.ID)
}

func TestAuthorize_EmbedsFingerprintAndExpiry(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	c := testCart(line("p1", "10.00", 2))
	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, cart.Fingerprint(c), auth.CartFingerprint)
	assert.Equal(t, at.Add(DefaultHoldTTL), auth.ExpiresAt)
	assert.Equal(t, "31.59", auth.Amount.StringFixed(2))

	hold := gw.holds[auth.ID]
	assert.Equal(t, "u1", hold.Metadata["owner_id"])
	assert.Equal(t, auth.CartFingerprint, hold.Metadata["cart_fingerprint"])
}

func TestCaptureOrReject_Success(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	result, err := p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	require.NoError(t, err)
	assert.Equal(t, auth.ID, result.HoldID)
	assert.Equal(t, "txn_"+auth.ID, result.TransactionID)
	assert.Equal(t, "31.59", result.Amount.StringFixed(2))
	assert.Equal(t, StatusCaptured, gw.holds[auth.ID].Status)
}

func TestCaptureOrReject_NotFound(t *testing.T) {
	p := newTestProtocol(newFakeGateway())

	_, err := p.CaptureOrReject(context.Background(), "hold_missing", testCart(), "u1")
	require.ErrorIs(t, err, ErrHoldNotFound)
}

func TestCaptureOrReject_CrossAccountReplay(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "attacker")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCaptureOrReject_Expired(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	// Even with a matching fingerprint, an expired hold is rejected.
	p.now = func() time.Time { return auth.ExpiresAt.Add(time.Minute) }
	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	require.ErrorIs(t, err, ErrExpired)
}

func TestCaptureOrReject_CartChanged(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)

	authorized := testCart(line("p1", "10.00", 2))
	auth, err := p.Authorize(context.Background(), authorized, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	mutated := testCart(line("p1", "10.00", 1))
	_, err = p.CaptureOrReject(context.Background(), auth.ID, mutated, "u1")
	require.ErrorIs(t, err, ErrCartChanged)
	assert.Equal(t, StatusRequiresCapture, gw.holds[auth.ID].Status)
}

func TestCaptureOrReject_TerminalHoldIsConsumed(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	require.NoError(t, err)

	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	require.ErrorIs(t, err, ErrHoldNotFound)
}

func TestCaptureOrReject_GatewayDecline(t *testing.T) {
	gw := newFakeGateway()
	gw.captureDecline = "card_declined"
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Equal(t, "card_declined", captureErr.Reason)
}

func TestCaptureOrReject_ConfirmsWhenRequired(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)
	gw.holds[auth.ID].RequiresConfirmation = true

	_, err = p.CaptureOrReject(context.Background(), auth.ID, c, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{auth.ID}, gw.confirmed)
}

func TestValidateHold(t *testing.T) {
	gw := newFakeGateway()
	p := newTestProtocol(gw)
	c := testCart(line("p1", "10.00", 2))

	auth, err := p.Authorize(context.Background(), c, testTotals("31.59"), "u1", "")
	require.NoError(t, err)

	v, err := p.ValidateHold(context.Background(), auth.ID, "u1")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, StatusRequiresCapture, v.Status)
	assert.Equal(t, auth.CartFingerprint, v.CartFingerprint)

	_, err = p.ValidateHold(context.Background(), auth.ID, "someone-else")
	require.ErrorIs(t, err, ErrUnauthorized)

	p.now = func() time.Time { return auth.ExpiresAt.Add(time.Hour) }
	v, err = p.ValidateHold(context.Background(), auth.ID, "u1")
	require.NoError(t, err)
	assert.False(t, v.Valid)
}
