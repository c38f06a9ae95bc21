package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/albion-craft/internal/itemid"
	"github.com/Simplici0/albion-craft/internal/profit"
)

// ErrNoRecipe is returned when no materials can be derived for an item.
var ErrNoRecipe = errors.New("crafting recipe not found")

const defaultTier = 4

var enchantMultipliers = []int{1, 2, 4, 8, 16}

// Source supplies the material list for a fully qualified item id.
type Source interface {
	Materials(ctx context.Context, itemID string) ([]profit.CraftingMaterial, error)
}

// Heuristic derives materials from item id patterns. It mirrors common
// Albion crafting patterns and is an approximation, not real recipe data.
type Heuristic struct{}

// NewHeuristic returns the pattern based recipe source.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Materials implements Source.
func (h *Heuristic) Materials(ctx context.Context, itemID string) ([]profit.CraftingMaterial, error) {
	materials := Generate(itemID)
	if len(materials) == 0 {
		return nil, fmt.Errorf("%w: no crafting recipe available for %s", ErrNoRecipe, itemID)
	}
	return materials, nil
}

type builder struct {
	tier       int
	multiplier int
	materials  []profit.CraftingMaterial
}

func (b *builder) add(kind, name string, tier, quantity int) {
	b.materials = append(b.materials, profit.CraftingMaterial{
		ItemID:   fmt.Sprintf("T%d_%s", tier, kind),
		Name:     fmt.Sprintf("Tier %d %s", tier, name),
		Quantity: quantity,
	})
}

// raw adds the current tier resource, scaled by enchantment.
func (b *builder) raw(kind, name string, base int) {
	b.add(kind, name, b.tier, base*b.multiplier)
}

// refined adds the previous tier refined resource, scaled by enchantment.
func (b *builder) refined(kind, name string, base int) {
	b.add(kind, name, max(1, b.tier-1), base*b.multiplier)
}

func (b *builder) enchantExtra(kind, name string, enchantment int) {
	if enchantment > 0 {
		b.add(kind, name, b.tier, enchantment)
	}
}

// Generate returns the heuristic material list for itemID, which may be empty.
func Generate(itemID string) []profit.CraftingMaterial {
	tier := itemid.Tier(itemID, defaultTier)
	enchantment := itemid.Enchantment(itemID)

	multiplier := 1
	if enchantment >= 0 && enchantment < len(enchantMultipliers) {
		multiplier = enchantMultipliers[enchantment]
	}
	b := &builder{tier: tier, multiplier: multiplier}

	has := func(parts ...string) bool {
		for _, p := range parts {
			if strings.Contains(itemID, p) {
				return true
			}
		}
		return false
	}
	twoHanded := has("2H_")
	pick := func(twoHandedQty, oneHandedQty int) int {
		if twoHanded {
			return twoHandedQty
		}
		return oneHandedQty
	}

	switch {
	case has("_SWORD", "_AXE", "_MACE", "_SPEAR", "_DAGGER", "_HAMMER"):
		b.raw("ORE", "Ore", pick(20, 16))
		b.refined("METALBAR", "Metal Bar", pick(12, 8))
		b.enchantExtra("RUNE", "Rune", enchantment)

	case has("_BOW", "_CROSSBOW"):
		b.raw("WOOD", "Wood", pick(20, 16))
		b.refined("PLANKS", "Planks", pick(12, 8))
		b.enchantExtra("SOUL", "Soul", enchantment)

	case has("STAFF", "_ORB", "_BOOK"):
		b.raw("FIBER", "Fiber", pick(20, 16))
		b.refined("CLOTH", "Cloth", pick(12, 8))
		b.enchantExtra("RELIC", "Relic", enchantment)

	case has("_HEAD", "_ARMOR", "_SHOES"):
		base := 8
		if has("_ARMOR") {
			base = 16
		}
		refinedQty := int(float64(base) * 0.4)
		switch {
		case has("CLOTH", "ROBE"):
			b.raw("FIBER", "Fiber", base)
			b.refined("CLOTH", "Cloth", refinedQty)
		case has("LEATHER", "JACKET"):
			b.raw("HIDE", "Hide", base)
			b.refined("LEATHER", "Leather", refinedQty)
		case has("PLATE", "HEAVY"):
			b.raw("ORE", "Ore", base)
			b.refined("METALBAR", "Metal Bar", refinedQty)
		}
		b.enchantExtra("RUNE", "Rune", enchantment)

	case has("_BAG", "_CAPE"):
		b.raw("FIBER", "Fiber", 8)
		b.refined("CLOTH", "Cloth", 4)
		b.enchantExtra("RELIC", "Relic", enchantment)

	case has("_TOOL", "PICKAXE", "AXE", "SICKLE", "HAMMER", "KNIFE"):
		b.raw("ORE", "Ore", 12)
		b.refined("METALBAR", "Metal Bar", 6)
		b.raw("WOOD", "Wood", 4)
		b.enchantExtra("SOUL", "Soul", enchantment)

	case has("_POTION", "_MEAL", "_SOUP"):
		b.raw("FIBER", "Fiber", 4)
		b.raw("ORE", "Ore", 2)

	default:
		b.raw("ORE", "Ore", 16)
		b.refined("METALBAR", "Metal Bar", 8)
	}

	return b.materials
}
