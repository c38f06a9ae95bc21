package profit

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func swordParams() Params {
	return Params{
		Materials: []CraftingMaterial{{ItemID: "T4_ORE", Name: "Tier 4 Ore", Quantity: 16}},
		Prices: []MarketPrice{
			{ItemID: "T4_ORE", Price: 100, IsAvailable: true},
			{ItemID: "T4_SWORD", Price: 5000, IsAvailable: true},
		},
		ItemID:        "T4_SWORD",
		CraftQuantity: 1,
		UsageFee:      250,
		ReturnRate:    15,
		HasPremium:    true,
	}
}

func TestCalculate_SwordBreakdown(t *testing.T) {
	result := Calculate(swordParams())

	nearlyEqual(t, "rawMaterialCost", result.RawMaterialCost, 1600)
	nearlyEqual(t, "returnDiscount", result.ReturnDiscount, 240)
	nearlyEqual(t, "adjustedMaterialCost", result.AdjustedMaterialCost, 1360)
	nearlyEqual(t, "totalUsageFee", result.TotalUsageFee, 250)
	nearlyEqual(t, "totalCraftingCost", result.TotalCraftingCost, 1610)
	nearlyEqual(t, "marketPrice", result.MarketPrice, 5000)
	nearlyEqual(t, "expectedSellPrice", result.ExpectedSellPrice, 4000)
	nearlyEqual(t, "grossRevenue", result.GrossRevenue, 4000)
	nearlyEqual(t, "marketTax", result.MarketTax, 160)
	nearlyEqual(t, "netProfit", result.NetProfit, 2230)
	nearlyEqual(t, "profitMargin", result.ProfitMargin, 55.75)
}

func TestCalculate_QuantityScalesCostsAndRevenue(t *testing.T) {
	p := swordParams()
	p.CraftQuantity = 3
	p.HasPremium = false

	result := Calculate(p)

	nearlyEqual(t, "rawMaterialCost", result.RawMaterialCost, 4800)
	nearlyEqual(t, "totalUsageFee", result.TotalUsageFee, 750)
	nearlyEqual(t, "grossRevenue", result.GrossRevenue, 12000)
	nearlyEqual(t, "marketTax", result.MarketTax, 960)
	nearlyEqual(t, "netProfit", result.NetProfit, 12000-960-(4800-720+750))
}

func TestCalculate_InvariantsHoldExactly(t *testing.T) {
	cases := []Params{
		swordParams(),
		{ItemID: "T8_BAG", CraftQuantity: 7, UsageFee: 13.37, ReturnRate: 47.9},
		{
			Materials:     []CraftingMaterial{{ItemID: "A", Quantity: 3}, {ItemID: "B", Quantity: 11}},
			Prices:        []MarketPrice{{ItemID: "A", Price: 333.3}, {ItemID: "B", Price: 0.7}, {ItemID: "X", Price: 1000.5}},
			ItemID:        "X",
			CraftQuantity: 9,
			UsageFee:      0.1,
			ReturnRate:    36.6,
		},
	}

	for i, p := range cases {
		r := Calculate(p)
		if r.TotalCraftingCost != r.AdjustedMaterialCost+r.TotalUsageFee {
			t.Fatalf("case %d: totalCraftingCost %v != adjusted %v + usage %v", i, r.TotalCraftingCost, r.AdjustedMaterialCost, r.TotalUsageFee)
		}
		if r.NetProfit != r.GrossRevenue-r.MarketTax-r.TotalCraftingCost {
			t.Fatalf("case %d: netProfit %v inconsistent with breakdown %+v", i, r.NetProfit, r)
		}
		if r.GrossRevenue == 0 && r.ProfitMargin != 0 {
			t.Fatalf("case %d: profitMargin = %v with zero revenue", i, r.ProfitMargin)
		}
	}
}

func TestCalculate_TaxRateSelection(t *testing.T) {
	premium := swordParams()
	standard := swordParams()
	standard.HasPremium = false

	nearlyEqual(t, "premium tax ratio", Calculate(premium).MarketTax/Calculate(premium).GrossRevenue, 0.04)
	nearlyEqual(t, "standard tax ratio", Calculate(standard).MarketTax/Calculate(standard).GrossRevenue, 0.08)
}

func TestCalculate_UndercutFloor(t *testing.T) {
	for _, price := range []float64{0, 1, 999.99, 1000} {
		p := swordParams()
		p.Prices[1].Price = price

		result := Calculate(p)

		if result.ExpectedSellPrice != 0 {
			t.Fatalf("market price %v: expectedSellPrice = %v, want 0", price, result.ExpectedSellPrice)
		}
		if result.ProfitMargin != 0 {
			t.Fatalf("market price %v: profitMargin = %v, want 0", price, result.ProfitMargin)
		}
		nearlyEqual(t, "netProfit", result.NetProfit, -result.TotalCraftingCost)
	}
}

func TestCalculate_ReturnRateNeverLowersProfit(t *testing.T) {
	p := swordParams()
	previous := math.Inf(-1)
	for rate := 0.0; rate <= 100; rate += 2.5 {
		p.ReturnRate = rate
		got := Calculate(p).NetProfit
		if got < previous {
			t.Fatalf("returnRate %v: netProfit %v dropped below %v", rate, got, previous)
		}
		previous = got
	}
}

func TestCalculate_MissingPricesContributeZero(t *testing.T) {
	p := swordParams()
	p.Materials = append(p.Materials, CraftingMaterial{ItemID: "T3_METALBAR", Quantity: 8})

	result := Calculate(p)

	nearlyEqual(t, "rawMaterialCost", result.RawMaterialCost, 1600)

	p.Prices = nil
	empty := Calculate(p)
	nearlyEqual(t, "rawMaterialCost", empty.RawMaterialCost, 0)
	nearlyEqual(t, "marketPrice", empty.MarketPrice, 0)
	nearlyEqual(t, "netProfit", empty.NetProfit, -250)
}

func TestCalculate_MalformedPriceIsZero(t *testing.T) {
	p := swordParams()
	p.Prices[0].Price = math.NaN()
	p.Prices[1].Price = math.Inf(1)

	result := Calculate(p)

	nearlyEqual(t, "rawMaterialCost", result.RawMaterialCost, 0)
	nearlyEqual(t, "marketPrice", result.MarketPrice, 0)
}

func TestCalculate_FirstPriceEntryWins(t *testing.T) {
	p := swordParams()
	p.Prices = append(p.Prices, MarketPrice{ItemID: "T4_ORE", Price: 1})

	nearlyEqual(t, "rawMaterialCost", Calculate(p).RawMaterialCost, 1600)
}

func TestCalculate_ZeroQuantityYieldsZeroTotals(t *testing.T) {
	p := swordParams()
	p.CraftQuantity = 0

	result := Calculate(p)

	nearlyEqual(t, "totalCraftingCost", result.TotalCraftingCost, 0)
	nearlyEqual(t, "grossRevenue", result.GrossRevenue, 0)
	nearlyEqual(t, "profitMargin", result.ProfitMargin, 0)
}

func TestResult_ProfitPerItem(t *testing.T) {
	r := Result{NetProfit: 1001}
	nearlyEqual(t, "per item", r.ProfitPerItem(2), 500)
	nearlyEqual(t, "zero quantity", r.ProfitPerItem(0), 1001)

	loss := Result{NetProfit: -5}
	nearlyEqual(t, "loss per item", loss.ProfitPerItem(2), -3)
}
