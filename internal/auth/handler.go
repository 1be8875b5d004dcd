package auth

import "github.com/gofiber/fiber/v2"

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterProtectedRoutes mounts the auth endpoints; requireAuth must run first.
func (h *Handler) RegisterProtectedRoutes(r fiber.Router, requireAuth fiber.Handler) {
	r.Get("/auth/validate", requireAuth, h.validate)
}

// validate only runs behind requireAuth, so reaching it means the token checked out.
func (h *Handler) validate(c *fiber.Ctx) error {
	userID, err := UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	return c.JSON(fiber.Map{
		"isAuthenticated": true,
		"userId":          userID,
	})
}
