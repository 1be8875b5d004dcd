package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/product"
)

const (
	msgDBReadFailed   = "Database read failed."
	msgDBUpdateFailed = "Database update failed."
)

var (
	ErrItemNotFound = apperror.NotFound("Item not found in cart.")
	// ErrInsufficientStock is returned by repositories when the stock guard
	// rejects a write. The service turns it into a conflict with a message.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductLookup is the part of the catalog the cart depends on.
type ProductLookup interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]product.Product, error)
}

// Repository mutations check stock and write in one atomic step and return
// the refreshed cart with product snapshots attached.
type Repository interface {
	// GetCart returns the user's cart, creating it when missing.
	GetCart(ctx context.Context, userID string) (Cart, error)
	// AddItemToCart adds qty of productID, merging into an existing line.
	// Fails with ErrInsufficientStock when the line would exceed stock.
	AddItemToCart(ctx context.Context, userID string, productID, qty int) (Cart, error)
	// UpdateItemQuantity sets an absolute quantity; qty <= 0 deletes the line.
	UpdateItemQuantity(ctx context.Context, userID string, itemID, qty int) (Cart, error)
	// RemoveItemFromCart decrements a line by qty, deleting it at zero.
	RemoveItemFromCart(ctx context.Context, userID string, itemID, qty int) (Cart, error)
	ClearCart(ctx context.Context, userID string) (Cart, error)
}

// InMemoryRepository keeps carts in a map guarded by a single mutex; stock
// checks and writes happen under the same lock.
type InMemoryRepository struct {
	mu         sync.Mutex
	products   ProductLookup
	carts      map[string]*Cart
	nextCartID int
	nextItemID int
	now        func() time.Time
}

func NewInMemoryRepository(products ProductLookup) *InMemoryRepository {
	return &InMemoryRepository{
		products:   products,
		carts:      make(map[string]*Cart),
		nextCartID: 1,
		nextItemID: 1,
		now:        time.Now,
	}
}

func (r *InMemoryRepository) GetCart(ctx context.Context, userID string) (Cart, error) {
	if err := ctx.Err(); err != nil {
		return Cart{}, apperror.Internal(msgDBReadFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(ctx, r.cartFor(userID))
}

func (r *InMemoryRepository) AddItemToCart(ctx context.Context, userID string, productID, qty int) (Cart, error) {
	if err := ctx.Err(); err != nil {
		return Cart{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.products.GetByID(ctx, productID)
	if err != nil {
		return Cart{}, err
	}

	c := r.cartFor(userID)
	now := r.now().UTC()
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty > p.Stock-c.Items[i].Quantity {
			return Cart{}, ErrInsufficientStock
		}
		c.Items[i].Quantity += qty
		c.Items[i].UpdatedAt = now
		c.UpdatedAt = now
		return r.snapshot(ctx, c)
	}

	if qty > p.Stock {
		return Cart{}, ErrInsufficientStock
	}
	c.Items = append(c.Items, Item{
		ID:        r.nextItemID,
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	})
	r.nextItemID++
	c.UpdatedAt = now
	return r.snapshot(ctx, c)
}

func (r *InMemoryRepository) UpdateItemQuantity(ctx context.Context, userID string, itemID, qty int) (Cart, error) {
	if err := ctx.Err(); err != nil {
		return Cart{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cartFor(userID)
	i := indexOf(c, itemID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}

	now := r.now().UTC()
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.UpdatedAt = now
		return r.snapshot(ctx, c)
	}

	p, err := r.products.GetByID(ctx, c.Items[i].ProductID)
	if err != nil {
		return Cart{}, err
	}
	if qty > p.Stock {
		return Cart{}, ErrInsufficientStock
	}
	c.Items[i].Quantity = qty
	c.Items[i].UpdatedAt = now
	c.UpdatedAt = now
	return r.snapshot(ctx, c)
}

func (r *InMemoryRepository) RemoveItemFromCart(ctx context.Context, userID string, itemID, qty int) (Cart, error) {
	if err := ctx.Err(); err != nil {
		return Cart{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cartFor(userID)
	i := indexOf(c, itemID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}

	now := r.now().UTC()
	if qty >= c.Items[i].Quantity {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity -= qty
		c.Items[i].UpdatedAt = now
	}
	c.UpdatedAt = now
	return r.snapshot(ctx, c)
}

func (r *InMemoryRepository) ClearCart(ctx context.Context, userID string) (Cart, error) {
	if err := ctx.Err(); err != nil {
		return Cart{}, apperror.Internal(msgDBUpdateFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cartFor(userID)
	c.Items = nil
	c.UpdatedAt = r.now().UTC()
	return r.snapshot(ctx, c)
}

// cartFor expects r.mu to be held.
func (r *InMemoryRepository) cartFor(userID string) *Cart {
	if c, ok := r.carts[userID]; ok {
		return c
	}
	now := r.now().UTC()
	c := &Cart{ID: r.nextCartID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	r.nextCartID++
	r.carts[userID] = c
	return c
}

// snapshot copies c and attaches product details. Lines whose product no
// longer exists are left out.
func (r *InMemoryRepository) snapshot(ctx context.Context, c *Cart) (Cart, error) {
	out := *c
	out.Items = make([]Item, 0, len(c.Items))
	if len(c.Items) == 0 {
		return out, nil
	}

	ids := make([]int, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return Cart{}, err
	}
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		it.Product = p
		out.Items = append(out.Items, it)
	}
	return out, nil
}

func indexOf(c *Cart, itemID int) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
