package product

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
)

const (
	msgDBReadFailed   = "Database read failed."
	msgDBUpdateFailed = "Database update failed."
)

var (
	ErrNotFound   = apperror.NotFound("Product not found.")
	ErrNoProducts = apperror.NotFound("No products available.")
)

func noProductsForCategory(category string) error {
	return apperror.NotFound(fmt.Sprintf("No products found for category: %s.", category))
}

type Repository interface {
	Create(ctx context.Context, p Product) (Product, error)
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	// GetByIDs returns the products that exist among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []int) (map[int]Product, error)
	// Random picks one product, restricted to category unless it is empty.
	Random(ctx context.Context, category string) (Product, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id int, p Product) (Product, error)
	Delete(ctx context.Context, id int) (Product, error)
}

// InMemoryRepository is used for tests and the in-memory server.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int
	now     func() time.Time
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make([]Product, 0, len(seed)),
		nextID:  1,
		now:     time.Now,
	}

	maxID := 0
	for _, p := range seed {
		r.storage = append(r.storage, p)
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) Create(ctx context.Context, p Product) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.nextID++
	r.storage = append(r.storage, p)
	return p, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, len(r.storage))
	copy(out, r.storage)
	return out, nil
}

func (r *InMemoryRepository) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(category), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) GetByIDs(ctx context.Context, ids []int) (map[int]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Internal(msgDBReadFailed, err)
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]Product, len(ids))
	for _, p := range r.storage {
		if _, ok := want[p.ID]; ok {
			out[p.ID] = p
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Random(ctx context.Context, category string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool := r.storage
	if category != "" {
		pool = r.filter(category)
		if len(pool) == 0 {
			return Product{}, noProductsForCategory(category)
		}
	}
	if len(pool) == 0 {
		return Product{}, ErrNoProducts
	}
	return pool[rand.IntN(len(pool))], nil
}

func (r *InMemoryRepository) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range r.storage {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int, p Product) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			p.ID = id
			p.CreatedAt = r.storage[i].CreatedAt
			p.UpdatedAt = r.now().UTC()
			r.storage[i] = p
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			p := r.storage[i]
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// filter expects r.mu to be held.
func (r *InMemoryRepository) filter(category string) []Product {
	out := make([]Product, 0)
	for _, p := range r.storage {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}
