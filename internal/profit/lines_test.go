package profit

import "testing"

func TestLines_PricesEachMaterialForOneCraft(t *testing.T) {
	materials := []CraftingMaterial{
		{ItemID: "T4_ORE", Name: "Tier 4 Ore", Quantity: 16},
		{ItemID: "T3_METALBAR", Name: "Tier 3 Metal Bar", Quantity: 8},
	}
	prices := []MarketPrice{
		{ItemID: "T4_ORE", Price: 100, IsAvailable: true},
		{ItemID: "T3_METALBAR", Price: 0, Warning: "Price not found."},
	}

	lines := Lines(materials, prices)

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	nearlyEqual(t, "ore total", lines[0].TotalCost, 1600)
	if !lines[0].IsAvailable {
		t.Fatalf("expected ore to be available")
	}
	if lines[1].IsAvailable || lines[1].Warning == "" {
		t.Fatalf("expected metal bar to carry warning, got %+v", lines[1])
	}
}

func TestLines_MissingPriceEntry(t *testing.T) {
	lines := Lines([]CraftingMaterial{{ItemID: "T4_RUNE", Quantity: 1}}, nil)

	if lines[0].IsAvailable || lines[0].UnitPrice != 0 {
		t.Fatalf("unexpected line for missing price: %+v", lines[0])
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]Result{
		{NetProfit: 100, GrossRevenue: 1000, ProfitMargin: 10},
		{NetProfit: -50, GrossRevenue: 500, ProfitMargin: -10},
		{NetProfit: -250},
		{NetProfit: 300, GrossRevenue: 1000, ProfitMargin: 30},
	})

	if summary.Total != 4 || summary.Profitable != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	nearlyEqual(t, "averageMargin", summary.AverageMargin, 10)
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
