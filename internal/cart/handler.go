package cart

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/auth"
)

// Handler exposes the signed-in user's cart. All routes require auth.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(s *Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("cart.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cart.handler")
	}
	return &Handler{service: s, validate: apperror.NewValidator(), logger: l}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router, requireAuth fiber.Handler) {
	g := r.Group("/cart", requireAuth)
	g.Get("/", h.getCart)
	g.Delete("/", h.clearCart)
	g.Post("/items", h.addItem)
	g.Patch("/items/:id<int>", h.updateItem)
	g.Delete("/items/:id<int>", h.removeItem)
}

type addItemRequest struct {
	ProductID int `json:"productId" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"max=99"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return err
	}
	cart, err := h.service.GetCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body.", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.FromValidation(err)
	}

	cart, err := h.service.AddItem(c.UserContext(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	h.logger.Debug("item added", zap.String("user_id", userID), zap.Int("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
	return c.JSON(cart)
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return err
	}
	itemID, err := itemIDParam(c)
	if err != nil {
		return err
	}

	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body.", err)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.FromValidation(err)
	}

	cart, err := h.service.UpdateItemQuantity(c.UserContext(), userID, itemID, *req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return err
	}
	itemID, err := itemIDParam(c)
	if err != nil {
		return err
	}

	qty := 1
	if raw := c.Query("quantity"); raw != "" {
		qty, err = strconv.Atoi(raw)
		if err != nil {
			return apperror.Validation("Quantity to remove must be a whole number.")
		}
	}

	cart, err := h.service.RemoveItem(c.UserContext(), userID, itemID, qty)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return err
	}
	cart, err := h.service.ClearCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	h.logger.Info("cart cleared", zap.String("user_id", userID))
	return c.JSON(cart)
}

func itemIDParam(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperror.Validation("Invalid cart item id.")
	}
	return id, nil
}
