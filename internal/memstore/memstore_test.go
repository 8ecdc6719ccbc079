package memstore

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/checkout"
	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/domain/product"
	"github.com/xenking/shopagent/internal/domain/profile"
)

func TestProductRepository_Search(t *testing.T) {
	repo := NewProductRepository([]product.Product{
		{ID: "p1", Name: "Blue Widget", Category: "widgets", Price: decimal.RequireFromString("10.00")},
		{ID: "p2", Name: "Red Widget", Category: "widgets", Price: decimal.RequireFromString("12.00")},
		{ID: "p3", Name: "Gadget", Category: "gadgets", Price: decimal.RequireFromString("25.50")},
	})

	out, err := repo.Search(context.Background(), "WIDGET", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Blue Widget", out[0].Name, "results sorted by name")

	out, err = repo.Search(context.Background(), "widget", 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestCartRepository_GetReturnsCopy(t *testing.T) {
	repo := NewCartRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &cart.Cart{OwnerID: "u1", Items: []cart.Item{{
		ProductID: "p1",
		UnitPrice: decimal.RequireFromString("10.00"),
		Quantity:  1,
	}}}))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity, "stored cart must not alias returned slices")

	require.NoError(t, repo.Clear(ctx, "u1"))
	cleared, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())
}

func TestProfileRepository(t *testing.T) {
	repo := NewProfileRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1")
	require.ErrorIs(t, err, profile.ErrNotFound)

	addr := &profile.Address{Name: "A", Line1: "1 Main St", City: "Springfield", Country: "US"}
	require.NoError(t, repo.Save(ctx, "u1", addr))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", got.Line1)
}

func TestCustomerStore(t *testing.T) {
	store := NewCustomerStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, payment.ErrCustomerNotFound)

	require.NoError(t, store.Save(ctx, "u1", "cus_1"))
	id, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", id)
}

func TestPreviewStore(t *testing.T) {
	store := NewPreviewStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, checkout.ErrNoPreview)
}
