package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/auth"
	"github.com/wichananm65/zynapse-backend/internal/cart"
	"github.com/wichananm65/zynapse-backend/internal/config"
	"github.com/wichananm65/zynapse-backend/internal/database"
	"github.com/wichananm65/zynapse-backend/internal/logger"
	"github.com/wichananm65/zynapse-backend/internal/product"
	"github.com/wichananm65/zynapse-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db, log); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		ClockSkew: &cfg.JWT.ClockSkew,
	})
	if err != nil {
		log.Fatal("token verifier", zap.Error(err))
	}

	productRepo := product.NewPostgresRepository(db, log)
	productService := product.NewService(productRepo)
	cartRepo := cart.NewPostgresRepository(db, productRepo, log)
	cartService := cart.NewService(cartRepo, productRepo, log)

	app := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Verifier: verifier,
		Products: productService,
		Cart:     cartService,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
