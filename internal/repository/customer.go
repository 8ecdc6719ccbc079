package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopagent/internal/domain/payment"
)

const (
	getCustomerSQL = `SELECT customer_id FROM gateway_customers WHERE owner_id = $1`

	saveCustomerSQL = `INSERT INTO gateway_customers (owner_id, customer_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO NOTHING`
)

var _ payment.CustomerStore = (*CustomerRepository)(nil)

// CustomerRepository maps owner identities to gateway customer IDs, backed
// by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Get returns the gateway customer ID for the owner, or
// payment.ErrCustomerNotFound.
func (r *CustomerRepository) Get(ctx context.Context, ownerID string) (string, error) {
	var customerID string
	err := r.pool.QueryRow(ctx, getCustomerSQL, ownerID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", payment.ErrCustomerNotFound
		}
		return "", fmt.Errorf("getting gateway customer for %q: %w", ownerID, err)
	}
	return customerID, nil
}

// Save records the mapping. A concurrent insert for the same owner wins and
// this call is a no-op, which keeps the mapping stable.
func (r *CustomerRepository) Save(ctx context.Context, ownerID, customerID string) error {
	_, err := r.pool.Exec(ctx, saveCustomerSQL, ownerID, customerID)
	if err != nil {
		return fmt.Errorf("saving gateway customer for %q: %w", ownerID, err)
	}
	return nil
}
