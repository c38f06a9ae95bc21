package profit

// MaterialLine is a material priced for one craft of the target item.
type MaterialLine struct {
	Material    CraftingMaterial `json:"material"`
	UnitPrice   float64          `json:"unitPrice"`
	TotalCost   float64          `json:"totalCost"`
	IsAvailable bool             `json:"isAvailable"`
	Warning     string           `json:"warning,omitempty"`
}

// Lines prices each material for a single craft. Materials without a price
// entry are reported as unavailable with a zero unit price.
func Lines(materials []CraftingMaterial, prices []MarketPrice) []MaterialLine {
	idx := indexPrices(prices)
	lines := make([]MaterialLine, 0, len(materials))
	for _, m := range materials {
		unitPrice := idx.unitPrice(m.ItemID)
		line := MaterialLine{
			Material:  m,
			UnitPrice: unitPrice,
			TotalCost: unitPrice * float64(m.Quantity),
		}
		if p, ok := idx[m.ItemID]; ok {
			line.IsAvailable = p.IsAvailable
			line.Warning = p.Warning
		}
		lines = append(lines, line)
	}
	return lines
}

// Summary aggregates a set of results for overview statistics.
type Summary struct {
	Total         int     `json:"total"`
	Profitable    int     `json:"profitable"`
	AverageMargin float64 `json:"averageMargin"`
}

// Summarize counts profitable results and averages the margin of those with
// revenue.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	withRevenue := 0
	marginSum := 0.0
	for _, r := range results {
		if r.NetProfit > 0 {
			s.Profitable++
		}
		if r.GrossRevenue > 0 {
			withRevenue++
			marginSum += r.ProfitMargin
		}
	}
	if withRevenue > 0 {
		s.AverageMargin = marginSum / float64(withRevenue)
	}
	return s
}
