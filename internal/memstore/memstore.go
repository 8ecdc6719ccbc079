// Package memstore provides in-memory repository implementations used for
// local development and tests when no database is configured.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xenking/shopagent/internal/domain/auth"
	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/checkout"
	"github.com/xenking/shopagent/internal/domain/order"
	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/domain/product"
	"github.com/xenking/shopagent/internal/domain/profile"
)

// ProductRepository is a read-only in-memory catalog.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

var _ product.Repository = (*ProductRepository)(nil)

// NewProductRepository creates a catalog pre-loaded with the given products.
func NewProductRepository(products []product.Product) *ProductRepository {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &ProductRepository{products: byID}
}

// Search matches the query case-insensitively against name, description and
// category.
func (r *ProductRepository) Search(_ context.Context, query string, limit int) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []product.Product
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CartRepository keeps one cart per owner.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

var _ cart.Repository = (*CartRepository)(nil)

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*cart.Cart)}
}

// Get returns the owner's cart, or an empty one if none has been saved yet.
func (r *CartRepository) Get(_ context.Context, ownerID string) (*cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[ownerID]
	if !ok {
		return &cart.Cart{OwnerID: ownerID}, nil
	}
	cp := &cart.Cart{OwnerID: c.OwnerID, Items: make([]cart.Item, len(c.Items))}
	copy(cp.Items, c.Items)
	return cp, nil
}

func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := &cart.Cart{OwnerID: c.OwnerID, Items: make([]cart.Item, len(c.Items))}
	copy(cp.Items, c.Items)
	r.carts[c.OwnerID] = cp
	return nil
}

func (r *CartRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, ownerID)
	return nil
}

// ProfileRepository keeps one shipping address per owner.
type ProfileRepository struct {
	mu        sync.RWMutex
	addresses map[string]profile.Address
}

var _ profile.Repository = (*ProfileRepository)(nil)

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{addresses: make(map[string]profile.Address)}
}

func (r *ProfileRepository) Get(_ context.Context, ownerID string) (*profile.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.addresses[ownerID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &addr, nil
}

func (r *ProfileRepository) Save(_ context.Context, ownerID string, addr *profile.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.addresses[ownerID] = *addr
	return nil
}

// OrderRepository appends order records.
type OrderRepository struct {
	mu      sync.RWMutex
	records []order.Record
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) Create(_ context.Context, rec *order.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, *rec)
	return nil
}

// Records returns a copy of everything created so far. Test helper.
func (r *OrderRepository) Records() []order.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]order.Record, len(r.records))
	copy(out, r.records)
	return out
}

// CustomerStore maps owner identities to gateway customer IDs.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]string
}

var _ payment.CustomerStore = (*CustomerStore)(nil)

func NewCustomerStore() *CustomerStore {
	return &CustomerStore{customers: make(map[string]string)}
}

func (s *CustomerStore) Get(_ context.Context, ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.customers[ownerID]
	if !ok {
		return "", payment.ErrCustomerNotFound
	}
	return id, nil
}

func (s *CustomerStore) Save(_ context.Context, ownerID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[ownerID] = customerID
	return nil
}

// APIKeyStore holds a static set of API keys, keyed by hash.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]auth.APIKeyInfo
}

var _ auth.Repository = (*APIKeyStore)(nil)

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{keys: make(map[string]auth.APIKeyInfo)}
}

// Add registers a key record under its hash.
func (s *APIKeyStore) Add(info auth.APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[info.KeyHash] = info
}

func (s *APIKeyStore) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.keys[hash]
	if !ok {
		return nil, auth.ErrUnknownKey
	}
	return &info, nil
}

// PreviewStore records the time of each identity's last order preview.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]time.Time
}

var _ checkout.PreviewStore = (*PreviewStore)(nil)

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]time.Time)}
}

func (s *PreviewStore) Set(_ context.Context, ownerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.previews[ownerID] = at
	return nil
}

func (s *PreviewStore) Get(_ context.Context, ownerID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.previews[ownerID]
	if !ok {
		return time.Time{}, checkout.ErrNoPreview
	}
	return at, nil
}
