package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/logger"
)

const userIDKey = "auth.user_id"

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user id for downstream handlers.
func Middleware(v *Verifier, l *zap.Logger) fiber.Handler {
	log := logger.Named(l, "auth")
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		userID, err := v.Verify(header)
		if err != nil {
			reason, _ := ReasonOf(err)
			id := v.Analyze(header)
			fields := []zap.Field{
				zap.String("reason", string(reason)),
				zap.String("detail", id.Message),
				zap.String("path", c.Path()),
			}
			if rid, ok := c.Locals("requestid").(string); ok {
				fields = append(fields, zap.String("request_id", rid))
			}
			if id.UserID != "" {
				fields = append(fields, zap.String("claimed_user_id", id.UserID))
			}
			log.Warn("authentication failed", fields...)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}

		log.Debug("token validated", zap.String("user_id", userID))
		SetUserID(c, userID)
		return c.Next()
	}
}

// SetUserID records the authenticated user for the current request.
func SetUserID(c *fiber.Ctx, userID string) {
	c.Locals(userIDKey, userID)
}

// UserIDFromCtx returns the user id stored by Middleware.
func UserIDFromCtx(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals(userIDKey).(string)
	if !ok || id == "" {
		return "", fiber.ErrUnauthorized
	}
	return id, nil
}
