package main

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/itemid"
	"github.com/Simplici0/albion-craft/internal/market"
	"github.com/Simplici0/albion-craft/internal/profit"
	"github.com/Simplici0/albion-craft/internal/recipe"
)

const (
	defaultRankLimit  = 20
	maxRankLimit      = 100
	maxRankCandidates = 500
	maxPageLimit      = 200
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// catalogQuery reads the shared item filter parameters.
func catalogQuery(r *http.Request) (catalog.Query, error) {
	q := r.URL.Query()
	query := catalog.Query{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}

	if raw := q.Get("category"); raw != "" && raw != "all" {
		category := catalog.Category(strings.ToLower(raw))
		if !slices.Contains(catalog.Categories, category) {
			return catalog.Query{}, fmt.Errorf("%w: unknown category %q", crafting.ErrInvalidRequest, raw)
		}
		query.Category = category
	}

	tier, ok, err := queryInt(q, "tier")
	if err != nil {
		return catalog.Query{}, err
	}
	if ok {
		if tier < itemid.MinTier || tier > itemid.MaxTier {
			return catalog.Query{}, fmt.Errorf("%w: tier must be between %d and %d", crafting.ErrInvalidRequest, itemid.MinTier, itemid.MaxTier)
		}
		query.Tier = tier
	}

	enchantment, ok, err := queryInt(q, "enchantment")
	if err != nil {
		return catalog.Query{}, err
	}
	if ok {
		if enchantment < 0 || enchantment > itemid.MaxEnchantment {
			return catalog.Query{}, fmt.Errorf("%w: enchantment must be between 0 and %d", crafting.ErrInvalidRequest, itemid.MaxEnchantment)
		}
		query.Enchantment = &enchantment
	}

	return query, nil
}

func (s *server) handleItems(w http.ResponseWriter, r *http.Request) {
	query, err := catalogQuery(r)
	if err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}

	q := r.URL.Query()
	if offset, ok, err := queryInt(q, "offset"); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	} else if ok {
		query.Offset = max(offset, 0)
	}
	if limit, ok, err := queryInt(q, "limit"); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	} else if ok {
		query.Limit = min(max(limit, 1), maxPageLimit)
	}

	items, err := s.catalog.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch items", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, catalog.Filter(items, query))
}

func (s *server) handlePrices(w http.ResponseWriter, r *http.Request) {
	ids := market.NormalizeIDs([]string{r.URL.Query().Get("items")})
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "Items parameter is required", "")
		return
	}

	prices, err := s.prices.Prices(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch prices", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

func (s *server) handleCrafting(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	q := r.URL.Query()

	tier, ok, err := queryInt(q, "tier")
	if err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}
	if !ok {
		tier = itemid.Tier(itemID, 4)
	}
	enchantment, ok, err := queryInt(q, "enchantment")
	if err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}
	if !ok {
		enchantment = itemid.Enchantment(itemID)
	}

	_, materials, err := s.crafting.Recipe(r.Context(), itemID, tier, enchantment)
	if err != nil {
		if errors.Is(err, recipe.ErrNoRecipe) {
			writeError(w, http.StatusNotFound, "Crafting recipe not found", "No crafting recipe available for "+itemID)
			return
		}
		writeServiceError(w, "Failed to fetch crafting data", err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var params profit.Params
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(params.ItemID) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "itemId is required")
		return
	}
	settings := crafting.Settings{
		CraftQuantity: params.CraftQuantity,
		UsageFee:      params.UsageFee,
		ReturnRate:    params.ReturnRate,
		HasPremium:    params.HasPremium,
	}
	if err := s.validator.Validate(settings); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}

	result := profit.Calculate(params)
	s.metrics.ObserveCalculation(result.NetProfit, result.GrossRevenue)
	writeJSON(w, http.StatusOK, result)
}

// craftingRequest resolves the item variant from the path and query, with
// settings falling back to the stored defaults.
func (s *server) craftingRequest(r *http.Request, itemID string) (crafting.Request, error) {
	q := r.URL.Query()
	settings, err := s.settingsFromQuery(r.Context(), q)
	if err != nil {
		return crafting.Request{}, err
	}

	req := crafting.Request{
		ItemID:      itemID,
		Tier:        itemid.Tier(itemID, 4),
		Enchantment: itemid.Enchantment(itemID),
		Settings:    settings,
	}
	if v, ok, err := queryInt(q, "tier"); err != nil {
		return crafting.Request{}, err
	} else if ok {
		req.Tier = v
	}
	if v, ok, err := queryInt(q, "enchantment"); err != nil {
		return crafting.Request{}, err
	} else if ok {
		req.Enchantment = v
	}
	return req, nil
}

func (s *server) handleProfit(w http.ResponseWriter, r *http.Request) {
	req, err := s.craftingRequest(r, chi.URLParam(r, "itemId"))
	if err != nil {
		writeServiceError(w, "Failed to calculate profit", err)
		return
	}

	ev, err := s.crafting.Evaluate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to calculate profit", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type rankingResponse struct {
	crafting.Ranking
	Candidates int `json:"candidates"`
	Truncated  bool `json:"truncated"`
}

func (s *server) handleRankings(w http.ResponseWriter, r *http.Request) {
	query, err := catalogQuery(r)
	if err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}
	settings, err := s.settingsFromQuery(r.Context(), r.URL.Query())
	if err != nil {
		writeServiceError(w, "Failed to rank items", err)
		return
	}

	limit := defaultRankLimit
	if v, ok, err := queryInt(r.URL.Query(), "limit"); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	} else if ok {
		limit = min(max(v, 1), maxRankLimit)
	}

	items, err := s.catalog.Items(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch items", err.Error())
		return
	}
	query.Offset = 0
	query.Limit = maxRankCandidates
	page := catalog.Filter(items, query)

	ranking, err := s.crafting.Rank(r.Context(), page.Items, settings, limit)
	if err != nil {
		writeServiceError(w, "Failed to rank items", err)
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{
		Ranking:    ranking,
		Candidates: len(page.Items),
		Truncated:  page.HasMore,
	})
}

func (s *server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	s.catalog.Invalidate()
	s.prices.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
