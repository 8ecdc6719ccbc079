package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopagent/internal/domain/checkout"
)

const (
	getPreviewSQL = `SELECT previewed_at FROM order_previews WHERE owner_id = $1`

	setPreviewSQL = `INSERT INTO order_previews (owner_id, previewed_at)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET previewed_at = EXCLUDED.previewed_at`
)

var _ checkout.PreviewStore = (*PreviewRepository)(nil)

// PreviewRepository records order-preview timestamps, backed by PostgreSQL.
type PreviewRepository struct {
	pool *pgxpool.Pool
}

// NewPreviewRepository returns a PreviewRepository that uses the given pool.
func NewPreviewRepository(pool *pgxpool.Pool) *PreviewRepository {
	return &PreviewRepository{pool: pool}
}

// Set records when the owner last previewed their order.
func (r *PreviewRepository) Set(ctx context.Context, ownerID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, setPreviewSQL, ownerID, at)
	if err != nil {
		return fmt.Errorf("recording preview for %q: %w", ownerID, err)
	}
	return nil
}

// Get returns the owner's last preview time or checkout.ErrNoPreview.
func (r *PreviewRepository) Get(ctx context.Context, ownerID string) (time.Time, error) {
	var at time.Time
	err := r.pool.QueryRow(ctx, getPreviewSQL, ownerID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, checkout.ErrNoPreview
		}
		return time.Time{}, fmt.Errorf("getting preview for %q: %w", ownerID, err)
	}
	return at, nil
}
