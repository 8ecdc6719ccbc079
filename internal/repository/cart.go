package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopagent/internal/domain/cart"
)

const (
	getCartSQL = `SELECT items FROM carts WHERE owner_id = $1`

	saveCartSQL = `INSERT INTO carts (owner_id, items, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			items = EXCLUDED.items,
			updated_at = NOW()`

	clearCartSQL = `DELETE FROM carts WHERE owner_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Items are
// stored as a JSONB document keyed by owner.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the owner's cart. A missing row is an empty cart, not an error.
func (r *CartRepository) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	var itemsJSON []byte
	err := r.pool.QueryRow(ctx, getCartSQL, ownerID).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &cart.Cart{OwnerID: ownerID}, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", ownerID, err)
	}

	var items []cart.Item
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items for %q: %w", ownerID, err)
	}
	return &cart.Cart{OwnerID: ownerID, Items: items}, nil
}

// Save upserts the owner's cart.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	_, err = r.pool.Exec(ctx, saveCartSQL, c.OwnerID, itemsJSON)
	if err != nil {
		return fmt.Errorf("saving cart for %q: %w", c.OwnerID, err)
	}
	return nil
}

// Clear deletes the owner's cart row.
func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	_, err := r.pool.Exec(ctx, clearCartSQL, ownerID)
	if err != nil {
		return fmt.Errorf("clearing cart for %q: %w", ownerID, err)
	}
	return nil
}
