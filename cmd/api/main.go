package main

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/auth"
	"github.com/wichananm65/zynapse-backend/internal/cart"
	"github.com/wichananm65/zynapse-backend/internal/config"
	"github.com/wichananm65/zynapse-backend/internal/logger"
	"github.com/wichananm65/zynapse-backend/internal/product"
	"github.com/wichananm65/zynapse-backend/internal/server"
)

// main runs the API on in-memory repositories seeded with a small catalog.
// Nothing is persisted; useful for local frontend work.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, true)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		ClockSkew: &cfg.JWT.ClockSkew,
	})
	if err != nil {
		log.Fatal("token verifier", zap.Error(err))
	}

	products := product.NewInMemoryRepository(seed())
	app := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Verifier: verifier,
		Products: product.NewService(products),
		Cart:     cart.NewService(cart.NewInMemoryRepository(products), products, log),
	})

	log.Info("starting in-memory server", zap.String("addr", cfg.Addr))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func seed() []product.Product {
	link := func(s string) *string { return &s }
	return []product.Product{
		{ID: 1, Name: "Hollow Knight", Description: "Hand-drawn action adventure", Price: decimal.RequireFromString("14.99"), Stock: 25, Category: "Indie", Link: link("https://store.steampowered.com/app/367520")},
		{ID: 2, Name: "Celeste", Description: "Precision platformer", Price: decimal.RequireFromString("19.99"), Stock: 12, Category: "Indie", Link: link("https://store.steampowered.com/app/504230")},
		{ID: 3, Name: "Elden Ring", Description: "Open world action RPG", Price: decimal.RequireFromString("59.99"), Stock: 8, Category: "RPG", Link: link("https://store.steampowered.com/app/1245620")},
		{ID: 4, Name: "Stardew Valley", Description: "Farming simulation", Price: decimal.RequireFromString("14.99"), Stock: 40, Category: "Simulation", Link: link("https://store.steampowered.com/app/413150")},
		{ID: 5, Name: "Portal 2", Description: "Puzzle platformer", Price: decimal.RequireFromString("9.99"), Stock: 3, Category: "Puzzle", Link: link("https://store.steampowered.com/app/620")},
	}
}
