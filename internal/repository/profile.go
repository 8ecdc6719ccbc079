package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopagent/internal/domain/profile"
)

const (
	getProfileSQL = `SELECT address FROM shipping_profiles WHERE owner_id = $1`

	saveProfileSQL = `INSERT INTO shipping_profiles (owner_id, address, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			address = EXCLUDED.address,
			updated_at = NOW()`
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository backed by PostgreSQL.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a ProfileRepository that uses the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get returns the owner's shipping address or profile.ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, ownerID string) (*profile.Address, error) {
	var addrJSON []byte
	err := r.pool.QueryRow(ctx, getProfileSQL, ownerID).Scan(&addrJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting shipping profile for %q: %w", ownerID, err)
	}

	var addr profile.Address
	if err := json.Unmarshal(addrJSON, &addr); err != nil {
		return nil, fmt.Errorf("unmarshaling shipping profile for %q: %w", ownerID, err)
	}
	return &addr, nil
}

// Save upserts the owner's shipping address.
func (r *ProfileRepository) Save(ctx context.Context, ownerID string, addr *profile.Address) error {
	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("marshaling shipping profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, saveProfileSQL, ownerID, addrJSON)
	if err != nil {
		return fmt.Errorf("saving shipping profile for %q: %w", ownerID, err)
	}
	return nil
}
