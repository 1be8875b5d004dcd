package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product maps to the `products` table. Price is NUMERIC(10,2); stock is
// capped at 99 by input validation and never negative.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Link        *string         `json:"link,omitempty"`
	Category    string          `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Input is the create/update payload. Update replaces every field.
type Input struct {
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"min=0,max=99"`
	Link        *string         `json:"link,omitempty" validate:"omitempty,url"`
	Category    string          `json:"category" validate:"max=50"`
}

func (in Input) normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Link != nil {
		link := strings.TrimSpace(*in.Link)
		if link == "" {
			in.Link = nil
		} else {
			in.Link = &link
		}
	}
	return in
}

func (in Input) apply(p Product) Product {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.Link = in.Link
	p.Category = in.Category
	return p
}

// Response is the product snapshot embedded in other resources such as cart items.
type Response struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Link        *string         `json:"link,omitempty"`
}

func ToResponse(p Product) Response {
	return Response{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Link:        p.Link,
	}
}
