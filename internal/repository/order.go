package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopagent/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders
	(id, owner_id, items, totals, shipping_address, payment_ref, note, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order record. Items, totals and the shipping address
// are serialized to JSON for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, rec *order.Record) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	totalsJSON, err := json.Marshal(rec.Totals)
	if err != nil {
		return fmt.Errorf("marshaling order totals: %w", err)
	}
	addrJSON, err := json.Marshal(rec.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		rec.ID, rec.OwnerID, itemsJSON, totalsJSON, addrJSON,
		rec.PaymentRef, rec.Note, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", rec.ID, err)
	}
	return nil
}
