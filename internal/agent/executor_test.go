package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/checkout"
	"github.com/xenking/shopagent/internal/domain/product"
)

// --- Fakes ---

type fakeProducts struct {
	byID    map[string]product.Product
	matches []product.Product
}

func (f *fakeProducts) Search(_ context.Context, _ string, limit int) ([]product.Product, error) {
	if len(f.matches) > limit {
		return f.matches[:limit], nil
	}
	return f.matches, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	if p, ok := f.byID[id]; ok {
		return &p, nil
	}
	return nil, product.ErrNotFound
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCarts struct {
	byOwner map[string]*cart.Cart
	saves   int
}

func (f *fakeCarts) Get(_ context.Context, ownerID string) (*cart.Cart, error) {
	if c, ok := f.byOwner[ownerID]; ok {
		return c, nil
	}
	return &cart.Cart{OwnerID: ownerID}, nil
}

func (f *fakeCarts) Save(_ context.Context, c *cart.Cart) error {
	f.byOwner[c.OwnerID] = c
	f.saves++
	return nil
}

func (f *fakeCarts) Clear(_ context.Context, ownerID string) error {
	delete(f.byOwner, ownerID)
	return nil
}

type fakeCheckout struct {
	preview     *checkout.PreviewResult
	previewErr  error
	complete    *checkout.CompleteResult
	completeErr error
	lastNote    string
}

func (f *fakeCheckout) Preview(context.Context, string) (*checkout.PreviewResult, error) {
	return f.preview, f.previewErr
}

func (f *fakeCheckout) Complete(_ context.Context, _ string, note string) (*checkout.CompleteResult, error) {
	f.lastNote = note
	return f.complete, f.completeErr
}

// --- Helpers ---

func catalogProduct(id, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
	}
}

func newTestExecutor(t *testing.T) (*Executor, *fakeProducts, *fakeCarts, *fakeCheckout) {
	products := &fakeProducts{byID: map[string]product.Product{
		"p1": catalogProduct("p1", "Widget", "10.00"),
		"p2": catalogProduct("p2", "Gadget", "25.50"),
	}}
	carts := &fakeCarts{byOwner: make(map[string]*cart.Cart)}
	co := &fakeCheckout{}
	return NewExecutor(products, carts, co, zaptest.NewLogger(t)), products, carts, co
}

func args(t *testing.T, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// --- Tests ---

func TestExecute_UnknownTool(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)

	result := e.Execute(context.Background(), "fly_to_moon", nil, "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "unknown_tool", result.Error)
}

func TestSearchProducts_RequiresQuery(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)

	result := e.Execute(context.Background(), toolSearchProducts, args(t, map[string]any{"query": "  "}), "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "validation", result.Error)
}

func TestSearchProducts_ReturnsMatches(t *testing.T) {
	e, products, _, _ := newTestExecutor(t)
	products.matches = []product.Product{
		catalogProduct("p1", "Widget", "10.00"),
		catalogProduct("p2", "Gadget", "25.50"),
	}

	result := e.Execute(context.Background(), toolSearchProducts, args(t, map[string]any{"query": "widget"}), "u1")
	require.True(t, result.Success, result.Message)

	views, ok := result.Data.([]productView)
	require.True(t, ok)
	assert.Len(t, views, 2)
}

func TestAddToCart_AtomicValidation(t *testing.T) {
	e, _, carts, _ := newTestExecutor(t)

	result := e.Execute(context.Background(), toolAddToCart, args(t, map[string]any{
		"items": []map[string]any{
			{"product_id": "p1", "quantity": 1},
			{"product_id": "bogus", "quantity": 2},
		},
	}), "u1")

	assert.False(t, result.Success)
	assert.Equal(t, "not_found", result.Error)
	assert.Contains(t, result.Message, "bogus")
	assert.Zero(t, carts.saves, "cart must be completely unchanged")
}

func TestAddToCart_MergesQuantities(t *testing.T) {
	e, _, carts, _ := newTestExecutor(t)
	carts.byOwner["u1"] = &cart.Cart{OwnerID: "u1", Items: []cart.Item{{
		ProductID: "p1",
		UnitPrice: decimal.RequireFromString("10.00"),
		Quantity:  2,
	}}}

	result := e.Execute(context.Background(), toolAddToCart, args(t, map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 3}},
	}), "u1")
	require.True(t, result.Success, result.Message)

	saved := carts.byOwner["u1"]
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 5, saved.Items[0].Quantity)
	assert.Contains(t, result.Message, "Widget")
}

func TestAddToCart_RejectsZeroQuantity(t *testing.T) {
	e, _, carts, _ := newTestExecutor(t)

	result := e.Execute(context.Background(), toolAddToCart, args(t, map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": 0}},
	}), "u1")

	assert.False(t, result.Success)
	assert.Equal(t, "validation", result.Error)
	assert.Zero(t, carts.saves)
}

func TestRemoveFromCart_ReportsNotFoundSeparately(t *testing.T) {
	e, _, carts, _ := newTestExecutor(t)
	carts.byOwner["u1"] = &cart.Cart{OwnerID: "u1", Items: []cart.Item{{
		ProductID: "p1",
		UnitPrice: decimal.RequireFromString("10.00"),
		Quantity:  2,
	}}}

	result := e.Execute(context.Background(), toolRemoveFromCart, args(t, map[string]any{
		"items": []map[string]any{
			{"product_id": "p1", "remove_all": true},
			{"product_id": "ghost", "remove_all": true},
		},
	}), "u1")
	require.True(t, result.Success, result.Message)

	view, ok := result.Data.(removeView)
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, view.Removed)
	assert.Equal(t, []string{"ghost"}, view.NotFound)
	assert.Empty(t, view.Cart.Items)
}

func TestRemoveFromCart_RejectsNonPositiveQuantity(t *testing.T) {
	e, _, carts, _ := newTestExecutor(t)
	carts.byOwner["u1"] = &cart.Cart{OwnerID: "u1", Items: []cart.Item{{
		ProductID: "p1",
		UnitPrice: decimal.RequireFromString("10.00"),
		Quantity:  2,
	}}}

	// A negative quantity must never reach the cart: 2 - (-3) would grow
	// the line to 5.
	result := e.Execute(context.Background(), toolRemoveFromCart, args(t, map[string]any{
		"items": []map[string]any{{"product_id": "p1", "quantity": -3}},
	}), "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "validation", result.Error)

	// A zero or omitted quantity without remove_all is a no-op, not a
	// removal.
	result = e.Execute(context.Background(), toolRemoveFromCart, args(t, map[string]any{
		"items": []map[string]any{{"product_id": "p1"}},
	}), "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "validation", result.Error)

	assert.Zero(t, carts.saves, "cart must be completely unchanged")
	assert.Equal(t, 2, carts.byOwner["u1"].Items[0].Quantity)
}

func TestViewCart_Empty(t *testing.T) {
	e, _, _, _ := newTestExecutor(t)

	result := e.Execute(context.Background(), toolViewCart, nil, "u1")
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "empty")
}

func TestPreviewOrder_EmptyCart(t *testing.T) {
	e, _, _, co := newTestExecutor(t)
	co.previewErr = checkout.ErrEmptyCart

	result := e.Execute(context.Background(), toolPreviewOrder, nil, "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "empty_cart", result.Error)
}

func TestCompleteCheckout_MapsPreviewRequired(t *testing.T) {
	e, _, _, co := newTestExecutor(t)
	co.completeErr = checkout.ErrPreviewRequired

	result := e.Execute(context.Background(), toolCompleteCheckout, nil, "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "preview_required", result.Error)
}

func TestCompleteCheckout_Success(t *testing.T) {
	e, _, _, co := newTestExecutor(t)
	co.complete = &checkout.CompleteResult{
		OrderID:       "ord_1",
		TransactionID: "txn_1",
		Amount:        decimal.RequireFromString("31.59"),
		Currency:      "USD",
	}

	result := e.Execute(context.Background(), toolCompleteCheckout,
		args(t, map[string]any{"order_note": "ring the bell"}), "u1")

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "ring the bell", co.lastNote)
	assert.Contains(t, result.Message, "31.59")
}
