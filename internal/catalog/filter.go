package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PageSize is the number of items revealed per "load more" step.
const PageSize = 20

// Sort orders accepted by Filter.
const (
	SortName       = "name"
	SortTier       = "tier"
	SortProfitDesc = "profit-desc"
	SortProfitAsc  = "profit-asc"
)

// Query selects a window of the catalog. Zero values mean "all".
type Query struct {
	Search      string
	Category    Category
	Tier        int
	Enchantment *int
	Sort        string
	Offset      int
	Limit       int
}

// Page is a filtered window of the catalog.
type Page struct {
	Items   []Item `json:"items"`
	Total   int    `json:"total"`
	All     int    `json:"all"`
	HasMore bool   `json:"hasMore"`
}

// Filter applies q to items without modifying the input slice. Profit sorts
// need live prices and fall back to name order here.
func Filter(items []Item, q Query) Page {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := make([]Item, 0, len(items))
	for _, it := range items {
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) {
			continue
		}
		if q.Category != "" && it.Category != q.Category {
			continue
		}
		if q.Tier != 0 && it.Tier != q.Tier {
			continue
		}
		if q.Enchantment != nil && it.Enchantment != *q.Enchantment {
			continue
		}
		matched = append(matched, it)
	}

	switch q.Sort {
	case SortTier:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Tier < matched[j].Tier })
	case "":
		// catalog order: tier, then name
	default:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(matched, func(i, j int) bool {
			return c.CompareString(matched[i].Name, matched[j].Name) < 0
		})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = PageSize
	}
	start := min(max(q.Offset, 0), len(matched))
	end := min(start+limit, len(matched))

	return Page{
		Items:   matched[start:end],
		Total:   len(matched),
		All:     len(items),
		HasMore: end < len(matched),
	}
}
