// Package app wires configuration into the running services shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/db"
	"github.com/Simplici0/albion-craft/internal/market"
	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/migrations"
	"github.com/Simplici0/albion-craft/internal/recipe"
	"github.com/Simplici0/albion-craft/internal/seed"
	"github.com/Simplici0/albion-craft/internal/store"
)

// App holds the composed services.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Store    *store.Store
	Metrics  *metrics.Collector
	Catalog  *catalog.HTTPSource
	Market   *market.Service
	Recipes  recipe.Source
	Crafting *crafting.Service
}

// New opens the database, prepares the schema and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() || cfg.Database.MigrateOnStart {
		if err := migrations.Up(ctx, database); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	stats, err := seed.Run(ctx, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("seed database: %w", err)
	}
	if stats.Inserts > 0 || stats.Updates > 0 {
		slog.Info("database seeded", "inserts", stats.Inserts, "updates", stats.Updates)
	}

	m := metrics.New()
	st := store.New(database)

	client := market.NewClient(market.ClientConfig{
		BaseURL:           cfg.Market.BaseURL,
		Locations:         cfg.Market.Locations,
		Timeout:           cfg.Market.Timeout,
		RequestsPerSecond: cfg.Market.RequestsPerSecond,
		Burst:             cfg.Market.Burst,
		MaxRetries:        cfg.Market.MaxRetries,
		BackoffBase:       cfg.Market.BackoffBase,
		BatchSize:         cfg.Market.BatchSize,
	}, nil, m)
	prices := market.NewService(client, st, cfg.Market.CacheTTL, nil, m)

	recipes := recipe.NewHeuristic()

	return &App{
		Config:   cfg,
		DB:       database,
		Store:    st,
		Metrics:  m,
		Catalog:  catalog.NewHTTPSource(cfg.Catalog.DumpURL, cfg.Catalog.IconBaseURL, cfg.Catalog.Timeout, cfg.Catalog.CacheTTL, m),
		Market:   prices,
		Recipes:  recipes,
		Crafting: crafting.NewService(recipes, prices, cfg.Crafting.RankConcurrency, m),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
