package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/db"
	"github.com/Simplici0/albion-craft/internal/market"
	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/migrations"
	"github.com/Simplici0/albion-craft/internal/profit"
	"github.com/Simplici0/albion-craft/internal/recipe"
	"github.com/Simplici0/albion-craft/internal/store"
)

const testAdminToken = "admin-secret"

type fakeCatalog struct {
	items       []catalog.Item
	err         error
	invalidated int
}

func (f *fakeCatalog) Items(ctx context.Context) ([]catalog.Item, error) {
	return f.items, f.err
}

func (f *fakeCatalog) Invalidate() { f.invalidated++ }

type fakePrices struct {
	mu          sync.Mutex
	prices      map[string]float64
	err         error
	invalidated int
}

func (f *fakePrices) Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]profit.MarketPrice, 0, len(ids))
	for _, id := range market.NormalizeIDs(ids) {
		p, ok := f.prices[id]
		if !ok {
			out = append(out, profit.MarketPrice{ItemID: id, City: market.UnknownCity, Warning: market.MissingPriceWarning})
			continue
		}
		out = append(out, profit.MarketPrice{ItemID: id, Price: p, City: "Caerleon", IsAvailable: true})
	}
	return out, nil
}

func (f *fakePrices) Invalidate() { f.invalidated++ }

type testEnv struct {
	srv     *server
	handler http.Handler
	catalog *fakeCatalog
	prices  *fakePrices
	store   *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(context.Background(), database))

	st := store.New(database)
	require.NoError(t, st.EnsureDefaults(context.Background()))

	cat := &fakeCatalog{items: []catalog.Item{
		{ID: "T4_MAIN_SWORD", Name: "Adept's Broadsword", Category: catalog.Weapons, Tier: 4},
		{ID: "T4_BAG", Name: "Adept's Bag", Category: catalog.Accessories, Tier: 4},
		{ID: "T4_2H_BOW", Name: "Adept's Bow", Category: catalog.Weapons, Tier: 4},
		{ID: "T5_2H_BOW", Name: "Expert's Bow", Category: catalog.Weapons, Tier: 5},
	}}
	prices := &fakePrices{prices: map[string]float64{
		"T4_ORE":        20,
		"T3_METALBAR":   50,
		"T4_MAIN_SWORD": 5000,
		"T4_FIBER":      10,
		"T3_CLOTH":      30,
		"T4_BAG":        1500,
	}}
	m := metrics.New()
	cs := crafting.NewService(recipe.NewHeuristic(), prices, 2, m)

	srv := newServer(cat, prices, cs, st, m, testAdminToken)
	return &testEnv{srv: srv, handler: srv.routes(), catalog: cat, prices: prices, store: st}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rr)["status"])
}

func TestItems_FilterAndPage(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/items?category=weapons&tier=4&limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[catalog.Page](t, rr)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 4, page.All)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)

	rr = env.do(t, http.MethodGet, "/api/items?category=furniture", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/items?tier=9", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	env.catalog.err = errors.New("dump unavailable")
	rr = env.do(t, http.MethodGet, "/api/items", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestPrices(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/prices", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Items parameter is required", decode[errorResponse](t, rr).Error)

	rr = env.do(t, http.MethodGet, "/api/prices?items=T4_ORE,T4_NOPE", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	prices := decode[[]profit.MarketPrice](t, rr)
	require.Len(t, prices, 2)
	assert.Equal(t, 20.0, prices[0].Price)
	assert.False(t, prices[1].IsAvailable)

	env.prices.err = market.ErrUpstream
	rr = env.do(t, http.MethodGet, "/api/prices?items=T4_ORE", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestCrafting(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/crafting/T4_MAIN_SWORD@1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	materials := decode[[]profit.CraftingMaterial](t, rr)
	require.Len(t, materials, 3)
	assert.Equal(t, profit.CraftingMaterial{ItemID: "T4_ORE", Name: "Tier 4 Ore", Quantity: 32}, materials[0])

	rr = env.do(t, http.MethodGet, "/api/crafting/T4_MAIN_SWORD?tier=6", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "T6_ORE", decode[[]profit.CraftingMaterial](t, rr)[0].ItemID)

	rr = env.do(t, http.MethodGet, "/api/crafting/T4_SHOES_GATHERER_FIBER", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Crafting recipe not found", decode[errorResponse](t, rr).Error)

	for _, query := range []string{"enchantment=9", "enchantment=-1", "tier=0", "tier=12"} {
		rr = env.do(t, http.MethodGet, "/api/crafting/T4_MAIN_SWORD?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
		assert.Equal(t, "Invalid request", decode[errorResponse](t, rr).Error, query)
	}
}

func TestCalculate(t *testing.T) {
	env := newTestEnv(t)

	params := profit.Params{
		Materials: []profit.CraftingMaterial{
			{ItemID: "T4_PLANKS", Name: "Planks", Quantity: 16},
			{ItemID: "T4_METALBAR", Name: "Metal Bar", Quantity: 8},
		},
		Prices: []profit.MarketPrice{
			{ItemID: "T4_PLANKS", Price: 100, IsAvailable: true},
			{ItemID: "T4_METALBAR", Price: 150, IsAvailable: true},
			{ItemID: "T4_MAIN_SWORD", Price: 5000, IsAvailable: true},
		},
		ItemID:        "T4_MAIN_SWORD",
		CraftQuantity: 1,
		UsageFee:      250,
		ReturnRate:    15,
		HasPremium:    true,
	}
	rr := env.do(t, http.MethodPost, "/api/calculate", params)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decode[profit.Result](t, rr)
	assert.InDelta(t, 1210, result.NetProfit, 1e-9)
	assert.InDelta(t, 30.25, result.ProfitMargin, 1e-9)

	params.CraftQuantity = 0
	rr = env.do(t, http.MethodPost, "/api/calculate", params)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	params.CraftQuantity = 1
	params.ReturnRate = 120
	rr = env.do(t, http.MethodPost, "/api/calculate", params)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(`{"itemId":`))
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfit_UsesStoredDefaults(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.UpdateDefaults(context.Background(), store.Defaults{CraftQuantity: 2, UsageFee: 250, ReturnRate: 15, HasPremium: true})
	require.NoError(t, err)

	rr := env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ev := decode[crafting.Evaluation](t, rr)
	assert.Equal(t, "T4_MAIN_SWORD", ev.ItemID)
	assert.Equal(t, 2, ev.Request.CraftQuantity)
	assert.InDelta(t, 5956, ev.Result.NetProfit, 1e-9)

	rr = env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD?quantity=1&premium=false&returnRate=0&usageFee=0", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ev = decode[crafting.Evaluation](t, rr)
	assert.Equal(t, 1, ev.Request.CraftQuantity)
	assert.False(t, ev.Request.HasPremium)
	// 4000 - 320 tax - 720 materials
	assert.InDelta(t, 2960, ev.Result.NetProfit, 1e-9)

	rr = env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD?enchantment=7", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD?quantity=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/profit/T4_SHOES_GATHERER_FIBER", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	env.prices.err = market.ErrUpstream
	rr = env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestRankings(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/rankings?tier=4&limit=2&quantity=2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[rankingResponse](t, rr)
	assert.Equal(t, 3, resp.Candidates)
	assert.False(t, resp.Truncated)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "T4_MAIN_SWORD", resp.Entries[0].Item.ID)
	assert.Equal(t, "T4_BAG", resp.Entries[1].Item.ID)
	assert.Equal(t, 3, resp.Summary.Total)
}

func TestCalculations_SaveListGetText(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/calculations", map[string]any{
		"itemId":        "T4_MAIN_SWORD",
		"craftQuantity": 2,
		"notes":         "weekend batch",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saved := decode[store.Calculation](t, rr)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Tier 4 Main Sword", saved.Title)
	assert.Equal(t, 2, saved.Params.CraftQuantity)
	assert.Equal(t, 250.0, saved.Params.UsageFee, "unset fields use stored defaults")
	assert.Len(t, saved.Materials, 2)

	rr = env.do(t, http.MethodGet, "/api/calculations?q=weekend", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]store.CalculationSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
	assert.InDelta(t, 5956, list[0].NetProfit, 1e-9)

	rr = env.do(t, http.MethodGet, "/api/calculations/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, saved.ID, decode[store.Calculation](t, rr).ID)

	rr = env.do(t, http.MethodGet, "/api/calculations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/calculations", map[string]any{"itemId": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleCalculationTextReturnsPlainText(t *testing.T) {
	env := newTestEnv(t)

	saved, err := env.store.SaveCalculation(context.Background(), store.Calculation{
		ItemID: "T4_MAIN_SWORD",
		Title:  "Sword batch",
		Notes:  "Sell in Caerleon",
		Params: store.CalculationParams{Tier: 4, CraftQuantity: 10, UsageFee: 250, ReturnRate: 15, HasPremium: true},
		Result: profit.Result{RawMaterialCost: 16000, NetProfit: 22300, ProfitMargin: 55.75, GrossRevenue: 40000},
		Materials: []profit.MaterialLine{
			{Material: profit.CraftingMaterial{ItemID: "T4_PLANKS", Name: "Tier 4 Planks", Quantity: 16}, UnitPrice: 100, TotalCost: 1600, IsAvailable: true},
			{Material: profit.CraftingMaterial{ItemID: "T4_RUNE", Name: "Tier 4 Rune", Quantity: 1}},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/calculations/"+saved.ID+"/text", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", saved.ID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	env.srv.handleCalculationText(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", rr.Header().Get("Content-Type"))
	}

	body := rr.Body.String()
	for _, expected := range []string{
		"Sword batch",
		"Item: Tier 4 Main Sword (T4_MAIN_SWORD)",
		"- Quantity: 10",
		"- Premium: yes",
		"- Tier 4 Planks x16 @ 100 = 1,600",
		"- Tier 4 Rune x1 @ 0 = 0 (no price)",
		"Material cost: 16,000",
		"Net profit: 22,300",
		"Profit margin: 55.75%",
		"Notes: Sell in Caerleon",
	} {
		if !strings.Contains(body, expected) {
			t.Fatalf("expected body to contain %q, got: %s", expected, body)
		}
	}
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + testAdminToken}

	rr := env.do(t, http.MethodPost, "/api/admin/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/admin/refresh", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/admin/refresh", nil, auth...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, env.catalog.invalidated)
	assert.Equal(t, 1, env.prices.invalidated)

	rr = env.do(t, http.MethodGet, "/api/admin/defaults", nil, auth...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 250.0, decode[store.Defaults](t, rr).UsageFee)

	rr = env.do(t, http.MethodPut, "/api/admin/defaults", store.Defaults{CraftQuantity: 5, UsageFee: 300, ReturnRate: 36.7, HasPremium: false}, auth...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[store.Defaults](t, rr)
	assert.Equal(t, 5, updated.CraftQuantity)
	assert.Equal(t, 36.7, updated.ReturnRate)

	rr = env.do(t, http.MethodPut, "/api/admin/defaults", store.Defaults{CraftQuantity: 0, UsageFee: 300, ReturnRate: 10}, auth...)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_DisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	env.srv.admin = newAdminGuard("")
	handler := env.srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/defaults", nil)
	req.Header.Set("Authorization", "Bearer ")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/profit/T4_MAIN_SWORD", nil)

	rr := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `albion_craft_crafting_calculations_total{outcome="profit"} 1`)
}

func TestCalculate_UnencodableResultIsServerError(t *testing.T) {
	env := newTestEnv(t)

	params := profit.Params{
		Prices:        []profit.MarketPrice{{ItemID: "T4_MAIN_SWORD", Price: 5000, IsAvailable: true}},
		ItemID:        "T4_MAIN_SWORD",
		CraftQuantity: 10,
		UsageFee:      1e308,
		ReturnRate:    15,
		HasPremium:    true,
	}
	rr := env.do(t, http.MethodPost, "/api/calculate", params)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to encode response", decode[errorResponse](t, rr).Error)
}

func TestWriteJSON_EncodesBeforeWritingStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]float64{"netProfit": math.Inf(-1)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Failed to encode response") {
		t.Fatalf("expected error body, got %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]int{"ok": 1})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
}
