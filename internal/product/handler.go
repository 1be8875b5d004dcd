package product

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("product.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("product.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/products", h.getProducts)
	r.Get("/products/random", h.getRandomProduct)
	r.Get("/products/categories", h.getCategories)
	r.Get("/products/:id<int>", h.getProduct)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router, requireAuth fiber.Handler) {
	r.Post("/products", requireAuth, h.createProduct)
	r.Put("/products/:id<int>", requireAuth, h.updateProduct)
	r.Delete("/products/:id<int>", requireAuth, h.deleteProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.ListByCategory(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *Handler) getRandomProduct(c *fiber.Ctx) error {
	p, err := h.service.GetRandom(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body.", err)
	}

	created, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	h.logger.Info("product created", zap.Int("product_id", created.ID))
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	var in Input
	if err := c.BodyParser(&in); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body.", err)
	}

	updated, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	h.logger.Info("product deleted", zap.Int("product_id", deleted.ID))
	return c.JSON(deleted)
}

func productID(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperror.Validation("Invalid product id.")
	}
	return id, nil
}
