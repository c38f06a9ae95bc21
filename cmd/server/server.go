package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/profit"
	"github.com/Simplici0/albion-craft/internal/store"
)

type itemCatalog interface {
	Items(ctx context.Context) ([]catalog.Item, error)
	Invalidate()
}

type priceService interface {
	Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error)
	Invalidate()
}

type craftingService interface {
	Recipe(ctx context.Context, itemID string, tier, enchantment int) (string, []profit.CraftingMaterial, error)
	Evaluate(ctx context.Context, req crafting.Request) (crafting.Evaluation, error)
	Rank(ctx context.Context, items []catalog.Item, settings crafting.Settings, limit int) (crafting.Ranking, error)
}

type dataStore interface {
	Ping(ctx context.Context) error
	Defaults(ctx context.Context) (store.Defaults, error)
	UpdateDefaults(ctx context.Context, d store.Defaults) (store.Defaults, error)
	SaveCalculation(ctx context.Context, c store.Calculation) (store.Calculation, error)
	ListCalculations(ctx context.Context, query string) ([]store.CalculationSummary, error)
	GetCalculation(ctx context.Context, id string) (store.Calculation, error)
}

type server struct {
	catalog   itemCatalog
	prices    priceService
	crafting  craftingService
	store     dataStore
	metrics   *metrics.Collector
	admin     *adminGuard
	validator *config.Validator
}

func newServer(c itemCatalog, p priceService, cr craftingService, st dataStore, m *metrics.Collector, adminToken string) *server {
	return &server{
		catalog:   c,
		prices:    p,
		crafting:  cr,
		store:     st,
		metrics:   m,
		admin:     newAdminGuard(adminToken),
		validator: config.NewValidator(),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)

	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/items", s.handleItems)
		r.Get("/prices", s.handlePrices)
		r.Get("/crafting/{itemId}", s.handleCrafting)
		r.Post("/calculate", s.handleCalculate)
		r.Get("/profit/{itemId}", s.handleProfit)
		r.Get("/rankings", s.handleRankings)

		r.Post("/calculations", s.handleCreateCalculation)
		r.Get("/calculations", s.handleListCalculations)
		r.Get("/calculations/{id}", s.handleGetCalculation)
		r.Get("/calculations/{id}/text", s.handleCalculationText)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.admin.middleware)
			r.Post("/refresh", s.handleAdminRefresh)
			r.Get("/defaults", s.handleAdminDefaults)
			r.Put("/defaults", s.handleAdminDefaultsUpdate)
		})
	})

	return r
}
