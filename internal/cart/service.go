package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/logger"
)

var (
	errQuantityTooLow    = apperror.Validation("Quantity must be at least 1.")
	errRemoveNotPositive = apperror.Validation("Quantity to remove must be greater than zero.")
)

func insufficientStock(stock int) error {
	msg := fmt.Sprintf("Insufficient stock. Only %d available.", stock)
	return apperror.Wrap(apperror.KindConflict, msg, ErrInsufficientStock)
}

func insufficientStockHeld(stock, current int) error {
	msg := fmt.Sprintf("Insufficient stock. Only %d available, and you already have %d in your cart.", stock, current)
	return apperror.Wrap(apperror.KindConflict, msg, ErrInsufficientStock)
}

// Service enforces the cart rules: quantities stay positive and never exceed
// the product's stock. Every operation returns the whole refreshed cart.
type Service struct {
	repo     Repository
	products ProductLookup
	logger   *zap.Logger
}

func NewService(repo Repository, products ProductLookup, l *zap.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger.Named(l, "cart.service")}
}

func (s *Service) GetCart(ctx context.Context, userID string) (Response, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) AddItem(ctx context.Context, userID string, productID, qty int) (Response, error) {
	if qty < 1 {
		return Response{}, errQuantityTooLow
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Response{}, err
	}
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return Response{}, err
	}

	current := 0
	if it, ok := c.findByProduct(productID); ok {
		current = it.Quantity
	}
	if qty > p.Stock-current {
		return Response{}, insufficientStockHeld(p.Stock, current)
	}

	c, err = s.repo.AddItemToCart(ctx, userID, productID, qty)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.logger.Warn("stock guard rejected add",
				zap.String("user_id", userID),
				zap.Int("product_id", productID),
				zap.Int("quantity", qty))
			return Response{}, s.addConflict(ctx, userID, productID)
		}
		return Response{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) UpdateItemQuantity(ctx context.Context, userID string, itemID, qty int) (Response, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	it, ok := c.findByID(itemID)
	if !ok {
		return Response{}, ErrItemNotFound
	}

	p, err := s.products.GetByID(ctx, it.ProductID)
	if err != nil {
		return Response{}, err
	}
	if qty > p.Stock {
		return Response{}, insufficientStock(p.Stock)
	}

	c, err = s.repo.UpdateItemQuantity(ctx, userID, itemID, qty)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.logger.Warn("stock guard rejected update",
				zap.String("user_id", userID),
				zap.Int("item_id", itemID),
				zap.Int("quantity", qty))
			if fresh, err := s.products.GetByID(ctx, it.ProductID); err == nil {
				p = fresh
			}
			return Response{}, insufficientStock(p.Stock)
		}
		return Response{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) RemoveItem(ctx context.Context, userID string, itemID, qty int) (Response, error) {
	if qty <= 0 {
		return Response{}, errRemoveNotPositive
	}
	c, err := s.repo.RemoveItemFromCart(ctx, userID, itemID, qty)
	if err != nil {
		return Response{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) (Response, error) {
	c, err := s.repo.ClearCart(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	return ToResponse(c), nil
}

// addConflict rebuilds the add failure message from fresh reads after the
// repository guard rejected a write the pre-check allowed.
func (s *Service) addConflict(ctx context.Context, userID string, productID int) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	current := 0
	if c, err := s.repo.GetCart(ctx, userID); err == nil {
		if it, ok := c.findByProduct(productID); ok {
			current = it.Quantity
		}
	}
	return insufficientStockHeld(p.Stock, current)
}
