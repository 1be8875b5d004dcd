package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/zynapse-backend/internal/product"
)

// Cart is a user's single cart. It is created on first read and survives ClearCart.
type Cart struct {
	ID        int
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one product line. Quantity is always positive; a line that would
// drop to zero is deleted instead.
type Item struct {
	ID        int
	CartID    int
	ProductID int
	Product   product.Product
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Cart) findByProduct(productID int) (Item, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return Item{}, false
}

func (c Cart) findByID(itemID int) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}

type ItemResponse struct {
	ID       int              `json:"id"`
	Quantity int              `json:"quantity"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Product  product.Response `json:"product"`
}

type Response struct {
	ID         int             `json:"id"`
	UserID     string          `json:"userId"`
	Items      []ItemResponse  `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
}

// ToResponse computes the aggregates from the item lines.
func ToResponse(c Cart) Response {
	out := Response{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      make([]ItemResponse, 0, len(c.Items)),
		TotalPrice: decimal.Zero,
	}
	for _, it := range c.Items {
		subtotal := it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		out.Items = append(out.Items, ItemResponse{
			ID:       it.ID,
			Quantity: it.Quantity,
			Subtotal: subtotal,
			Product:  product.ToResponse(it.Product),
		})
		out.TotalPrice = out.TotalPrice.Add(subtotal)
		out.TotalItems += it.Quantity
	}
	return out
}
