package profit

import (
	"math"
	"time"
)

const (
	// Undercut is the fixed amount listed below the current market price.
	Undercut = 1000.0
	// PremiumTaxRate is the market tax applied to premium accounts.
	PremiumTaxRate = 0.04
	// StandardTaxRate is the market tax applied without premium.
	StandardTaxRate = 0.08
)

// CraftingMaterial is one input required per single craft of the target item.
type CraftingMaterial struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// MarketPrice is the lowest observed market price for an item.
type MarketPrice struct {
	ItemID      string    `json:"itemId"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
	City        string    `json:"city,omitempty"`
	IsAvailable bool      `json:"isAvailable"`
	Warning     string    `json:"warning,omitempty"`
}

// Params holds every input of a single profit calculation.
type Params struct {
	Materials     []CraftingMaterial `json:"materials"`
	Prices        []MarketPrice      `json:"prices"`
	ItemID        string             `json:"itemId"`
	CraftQuantity int                `json:"craftQuantity"`
	UsageFee      float64            `json:"usageFee"`
	ReturnRate    float64            `json:"returnRate"`
	HasPremium    bool               `json:"hasPremium"`
}

// Result contains the cost and revenue breakdown for a crafting batch.
type Result struct {
	RawMaterialCost      float64 `json:"rawMaterialCost"`
	ReturnDiscount       float64 `json:"returnDiscount"`
	AdjustedMaterialCost float64 `json:"adjustedMaterialCost"`
	TotalUsageFee        float64 `json:"totalUsageFee"`
	TotalCraftingCost    float64 `json:"totalCraftingCost"`
	MarketPrice          float64 `json:"marketPrice"`
	ExpectedSellPrice    float64 `json:"expectedSellPrice"`
	GrossRevenue         float64 `json:"grossRevenue"`
	MarketTax            float64 `json:"marketTax"`
	NetProfit            float64 `json:"netProfit"`
	ProfitMargin         float64 `json:"profitMargin"`
}

// TaxRate returns the market tax rate for the given premium status.
func TaxRate(hasPremium bool) float64 {
	if hasPremium {
		return PremiumTaxRate
	}
	return StandardTaxRate
}

// Calculate computes the profit breakdown for crafting p.CraftQuantity items.
// Missing prices contribute zero; inputs are not range-checked.
func Calculate(p Params) Result {
	prices := indexPrices(p.Prices)
	quantity := float64(p.CraftQuantity)

	rawMaterialCost := 0.0
	for _, m := range p.Materials {
		rawMaterialCost += prices.unitPrice(m.ItemID) * float64(m.Quantity) * quantity
	}

	returnDiscount := rawMaterialCost * (p.ReturnRate / 100)
	adjustedMaterialCost := rawMaterialCost - returnDiscount
	totalUsageFee := p.UsageFee * quantity
	totalCraftingCost := adjustedMaterialCost + totalUsageFee

	marketPrice := prices.unitPrice(p.ItemID)
	expectedSellPrice := math.Max(0, marketPrice-Undercut)
	grossRevenue := expectedSellPrice * quantity
	marketTax := grossRevenue * TaxRate(p.HasPremium)

	netProfit := grossRevenue - marketTax - totalCraftingCost

	profitMargin := 0.0
	if grossRevenue > 0 {
		profitMargin = (netProfit / grossRevenue) * 100
	}

	return Result{
		RawMaterialCost:      rawMaterialCost,
		ReturnDiscount:       returnDiscount,
		AdjustedMaterialCost: adjustedMaterialCost,
		TotalUsageFee:        totalUsageFee,
		TotalCraftingCost:    totalCraftingCost,
		MarketPrice:          marketPrice,
		ExpectedSellPrice:    expectedSellPrice,
		GrossRevenue:         grossRevenue,
		MarketTax:            marketTax,
		NetProfit:            netProfit,
		ProfitMargin:         profitMargin,
	}
}

// ProfitPerItem returns the net profit of a single crafted item, rounded down.
func (r Result) ProfitPerItem(craftQuantity int) float64 {
	if craftQuantity == 0 {
		craftQuantity = 1
	}
	return math.Floor(r.NetProfit / float64(craftQuantity))
}

type priceIndex map[string]MarketPrice

// indexPrices keeps the first entry seen for every item.
func indexPrices(prices []MarketPrice) priceIndex {
	idx := make(priceIndex, len(prices))
	for _, p := range prices {
		if _, ok := idx[p.ItemID]; ok {
			continue
		}
		idx[p.ItemID] = p
	}
	return idx
}

func (idx priceIndex) unitPrice(itemID string) float64 {
	p, ok := idx[itemID]
	if !ok || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return 0
	}
	return p.Price
}
