package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
	"github.com/wichananm65/zynapse-backend/internal/auth"
	"github.com/wichananm65/zynapse-backend/internal/cart"
	"github.com/wichananm65/zynapse-backend/internal/config"
	"github.com/wichananm65/zynapse-backend/internal/logger"
	"github.com/wichananm65/zynapse-backend/internal/product"
)

// Deps are the assembled services the HTTP layer serves.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Verifier *auth.Verifier
	Products *product.Service
	Cart     *cart.Service
}

// New builds the fiber app with middleware and every route mounted under /api/v1.
func New(d Deps) *fiber.App {
	log := logger.Named(d.Logger, "http")

	app := fiber.New(fiber.Config{
		AppName:               "zynapse",
		ErrorHandler:          apperror.Handler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: d.Config.IsDevelopment()}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.CORSOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(requestLogger(log))
	if d.Config.RequestTimeout > 0 {
		app.Use(requestTimeout(d.Config.RequestTimeout))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	requireAuth := auth.Middleware(d.Verifier, d.Logger)
	api := app.Group("/api/v1")

	auth.NewHandler().RegisterProtectedRoutes(api, requireAuth)

	productHandler := product.NewHandler(d.Products, d.Logger)
	productHandler.RegisterPublicRoutes(api)
	productHandler.RegisterProtectedRoutes(api, requireAuth)

	cart.NewHandler(d.Cart, d.Logger).RegisterProtectedRoutes(api, requireAuth)

	return app
}

// requestLogger renders handler errors itself so the logged status is the
// one the client receives.
func requestLogger(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			if apperror.KindOf(err) == apperror.KindInternal && !isFiberError(err) {
				l.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if rid, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		l.Info("request", fields...)
		return nil
	}
}

func requestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func isFiberError(err error) bool {
	var fe *fiber.Error
	return errors.As(err, &fe)
}
