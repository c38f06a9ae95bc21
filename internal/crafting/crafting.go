// Package crafting evaluates crafting profit for catalog items using live
// recipes and market prices.
package crafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/itemid"
	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/profit"
	"github.com/Simplici0/albion-craft/internal/recipe"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid crafting request")

// PriceSource supplies one market price per requested id.
type PriceSource interface {
	Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error)
}

// Settings are the batch parameters shared by every evaluated item.
type Settings struct {
	CraftQuantity int     `json:"craftQuantity" validate:"min=1"`
	UsageFee      float64 `json:"usageFee" validate:"gte=0"`
	ReturnRate    float64 `json:"returnRate" validate:"gte=0,lte=100"`
	HasPremium    bool    `json:"hasPremium"`
}

// Request asks for the profit of one item variant.
type Request struct {
	ItemID      string `json:"itemId" validate:"required"`
	Tier        int    `json:"tier" validate:"min=1,max=8"`
	Enchantment int    `json:"enchantment" validate:"min=0,max=4"`
	Settings
}

// Evaluation is the priced outcome of a Request.
type Evaluation struct {
	ItemID        string                `json:"itemId"`
	Name          string                `json:"name"`
	Tier          int                   `json:"tier"`
	Enchantment   int                   `json:"enchantment"`
	Request       Request               `json:"request"`
	Materials     []profit.MaterialLine `json:"materials"`
	Result        profit.Result         `json:"result"`
	ProfitPerItem float64               `json:"profitPerItem"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// Service evaluates crafting requests.
type Service struct {
	recipes     recipe.Source
	prices      PriceSource
	validator   *config.Validator
	metrics     *metrics.Collector
	concurrency int
}

// NewService creates a crafting service. concurrency bounds Rank.
func NewService(recipes recipe.Source, prices PriceSource, concurrency int, m *metrics.Collector) *Service {
	return &Service{
		recipes:     recipes,
		prices:      prices,
		validator:   config.NewValidator(),
		metrics:     m,
		concurrency: max(concurrency, 1),
	}
}

// variantRequest bounds the item variant accepted by Recipe.
type variantRequest struct {
	ItemID      string `validate:"required"`
	Tier        int    `validate:"min=1,max=8"`
	Enchantment int    `validate:"min=0,max=4"`
}

// Recipe returns the variant id and its per-craft materials.
func (s *Service) Recipe(ctx context.Context, itemID string, tier, enchantment int) (string, []profit.CraftingMaterial, error) {
	if err := s.validator.Validate(variantRequest{ItemID: itemID, Tier: tier, Enchantment: enchantment}); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	variant := itemid.Variant(itemID, tier, enchantment)
	materials, err := s.recipes.Materials(ctx, variant)
	if err != nil {
		return variant, nil, err
	}
	return variant, materials, nil
}

// Evaluate prices the materials and the product of req and runs the profit
// calculation.
func (s *Service) Evaluate(ctx context.Context, req Request) (Evaluation, error) {
	if err := s.validator.Validate(req); err != nil {
		return Evaluation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	variant, materials, err := s.Recipe(ctx, req.ItemID, req.Tier, req.Enchantment)
	if err != nil {
		return Evaluation{}, err
	}

	prices, err := s.prices.Prices(ctx, priceIDs(variant, materials))
	if err != nil {
		return Evaluation{}, fmt.Errorf("load prices for %s: %w", variant, err)
	}

	return s.evaluate(req, variant, materials, prices), nil
}

func (s *Service) evaluate(req Request, variant string, materials []profit.CraftingMaterial, prices []profit.MarketPrice) Evaluation {
	result := profit.Calculate(profit.Params{
		Materials:     materials,
		Prices:        prices,
		ItemID:        variant,
		CraftQuantity: req.CraftQuantity,
		UsageFee:      req.UsageFee,
		ReturnRate:    req.ReturnRate,
		HasPremium:    req.HasPremium,
	})
	s.metrics.ObserveCalculation(result.NetProfit, result.GrossRevenue)

	return Evaluation{
		ItemID:        variant,
		Name:          itemid.DisplayName(variant),
		Tier:          req.Tier,
		Enchantment:   req.Enchantment,
		Request:       req,
		Materials:     profit.Lines(materials, prices),
		Result:        result,
		ProfitPerItem: result.ProfitPerItem(req.CraftQuantity),
		Warnings:      warnings(prices),
	}
}

// Entry is one ranked catalog item.
type Entry struct {
	Item       catalog.Item `json:"item"`
	Evaluation Evaluation   `json:"evaluation"`
}

// Ranking lists evaluated items by net profit, best first.
type Ranking struct {
	Entries []Entry        `json:"entries"`
	Skipped int            `json:"skipped"`
	Summary profit.Summary `json:"summary"`
}

// Rank evaluates items with the shared settings. Items without a recipe or
// with an out-of-range variant are skipped. Prices for every item come from
// one batched lookup. limit > 0 caps the number of returned entries; the summary
// always covers every evaluated item.
func (s *Service) Rank(ctx context.Context, items []catalog.Item, settings Settings, limit int) (Ranking, error) {
	if err := s.validator.Validate(settings); err != nil {
		return Ranking{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	type job struct {
		item      catalog.Item
		req       Request
		variant   string
		materials []profit.CraftingMaterial
		err       error
	}

	jobs := make([]job, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, it := range items {
		g.Go(func() error {
			req := Request{ItemID: it.ID, Tier: it.Tier, Enchantment: it.Enchantment, Settings: settings}
			variant, materials, err := s.Recipe(gctx, req.ItemID, req.Tier, req.Enchantment)
			if err != nil && !errors.Is(err, recipe.ErrNoRecipe) && !errors.Is(err, ErrInvalidRequest) {
				return fmt.Errorf("load recipe for %s: %w", it.ID, err)
			}
			jobs[i] = job{item: it, req: req, variant: variant, materials: materials, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Ranking{}, err
	}

	ready := make([]job, 0, len(jobs))
	skipped := 0
	var ids []string
	for _, j := range jobs {
		if j.err != nil {
			skipped++
			continue
		}
		ready = append(ready, j)
		ids = append(ids, priceIDs(j.variant, j.materials)...)
	}

	// Every evaluation reads from this single batched lookup.
	var index map[string]profit.MarketPrice
	if len(ready) > 0 {
		prices, err := s.prices.Prices(ctx, ids)
		if err != nil {
			return Ranking{}, fmt.Errorf("load prices for ranking: %w", err)
		}
		index = indexPrices(prices)
	}

	entries := make([]Entry, 0, len(ready))
	for _, j := range ready {
		prices := pricesFor(index, priceIDs(j.variant, j.materials))
		entries = append(entries, Entry{Item: j.item, Evaluation: s.evaluate(j.req, j.variant, j.materials, prices)})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Evaluation.Result.NetProfit > entries[b].Evaluation.Result.NetProfit
	})

	results := make([]profit.Result, len(entries))
	for i, e := range entries {
		results[i] = e.Evaluation.Result
	}
	summary := profit.Summarize(results)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	slog.Debug("ranking computed", "items", len(items), "evaluated", len(results), "skipped", skipped)
	return Ranking{Entries: entries, Skipped: skipped, Summary: summary}, nil
}

func indexPrices(prices []profit.MarketPrice) map[string]profit.MarketPrice {
	index := make(map[string]profit.MarketPrice, len(prices))
	for _, p := range prices {
		if _, ok := index[p.ItemID]; !ok {
			index[p.ItemID] = p
		}
	}
	return index
}

// pricesFor picks ids out of index. Ids the lookup did not return are
// reported as unavailable.
func pricesFor(index map[string]profit.MarketPrice, ids []string) []profit.MarketPrice {
	out := make([]profit.MarketPrice, 0, len(ids))
	for _, id := range ids {
		p, ok := index[id]
		if !ok {
			p = profit.MarketPrice{ItemID: id}
		}
		out = append(out, p)
	}
	return out
}

// priceIDs lists the material ids followed by the product id.
func priceIDs(variant string, materials []profit.CraftingMaterial) []string {
	ids := make([]string, 0, len(materials)+1)
	for _, m := range materials {
		ids = append(ids, m.ItemID)
	}
	return append(ids, variant)
}

func warnings(prices []profit.MarketPrice) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range prices {
		if p.Warning == "" {
			continue
		}
		msg := p.ItemID + ": " + p.Warning
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	return out
}
