// Package catalog turns the community items dump into the list of craftable
// items and provides filtering over it.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Simplici0/albion-craft/internal/itemid"
)

// Category groups craftable end products.
type Category string

const (
	Weapons     Category = "weapons"
	Armor       Category = "armor"
	Accessories Category = "accessories"
	Consumables Category = "consumables"
	Tools       Category = "tools"
	Mounts      Category = "mounts"
)

// Categories lists every category in display order.
var Categories = []Category{Weapons, Armor, Accessories, Consumables, Tools, Mounts}

// DefaultIconBaseURL is the render service used for item icons.
const DefaultIconBaseURL = "https://render.albiononline.com/v1/item/"

// ErrEmptyDump is returned when the dump yields no craftable item.
var ErrEmptyDump = errors.New("items dump contained no craftable items")

// Item is one craftable catalog entry.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Tier        int      `json:"tier"`
	Enchantment int      `json:"enchantment"`
	Icon        string   `json:"icon,omitempty"`
}

var (
	linePattern = regexp.MustCompile(`^\s*\d+:\s*([A-Z0-9_@]+)\s*:\s*(.+)$`)
	craftable   = regexp.MustCompile(`^T[1-8]_`)
)

// excluded marks raw resources, farming, and other non-craftable ids.
var excluded = []string{
	"FARM_", "SEED", "BABY", "GROWN", "UNIQUE_", "FISH_", "EGG", "MILK",
	"CARROT", "BEAN", "WHEAT", "TURNIP", "CABBAGE", "POTATO", "CORN", "PUMPKIN",
	"AGARIC", "COMFREY", "BURDOCK", "TEASEL", "FOXGLOVE", "MULLEIN", "YARROW",
	"MOUNTUPGRADE",
	"_ORE", "_HIDE", "_FIBER", "_WOOD", "_ROCK", "_CLOTH", "_LEATHER",
	"_METALBAR", "_PLANKS", "_STONEBLOCK", "_EXTRACT", "_ESSENCE", "_RUNE",
	"_SOUL", "JOURNAL_", "_LEVEL",
	"TREASURE_", "_SHARD", "CRYSTAL_", "ARTEFACT_",
}

var categoryMarkers = []struct {
	category Category
	markers  []string
}{
	{Weapons, []string{
		"_SWORD", "_BOW", "_CROSSBOW", "_HAMMER", "_AXE", "_SPEAR", "_DAGGER",
		"_QUARTERSTAFF", "_MACE", "_FIRESTAFF", "_FROSTSTAFF", "_ARCANESTAFF",
		"_HOLYSTAFF", "_NATURESTAFF", "_CURSEDSTAFF", "_SHIELD", "_BOOK", "_ORB",
		"_TOTEM", "_HORN",
	}},
	{Armor, []string{"_HEAD", "_ARMOR", "_SHOES"}},
	{Accessories, []string{"_BAG", "_CAPE", "_CAPEITEM"}},
	{Mounts, []string{"_MOUNT", "_HORSE", "_OX"}},
	{Consumables, []string{"_POTION", "_MEAL", "_SOUP", "_SANDWICH", "_PIE", "_OMELETTE"}},
	{Tools, []string{"_TOOL", "_PICKAXE", "_SICKLE", "_SKINNINGKNIFE", "_STONEHAMMER", "_WOODAXE", "_FIBERKNIFE"}},
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Categorize returns the category of id and whether it is a known craftable
// end product.
func Categorize(id string) (Category, bool) {
	for _, c := range categoryMarkers {
		if containsAny(id, c.markers) {
			return c.category, true
		}
	}
	return "", false
}

// Parse reads the dump and returns unique craftable items sorted by tier,
// then name. Icons are built from iconBaseURL.
func Parse(r io.Reader, iconBaseURL string) ([]Item, error) {
	seen := make(map[string]struct{})
	items := make([]Item, 0)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, name := m[1], strings.TrimSpace(m[2])

		if containsAny(id, excluded) || !craftable.MatchString(id) {
			continue
		}
		category, ok := Categorize(id)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		items = append(items, Item{
			ID:          id,
			Name:        name,
			Category:    category,
			Tier:        itemid.Tier(id, 1),
			Enchantment: itemid.Enchantment(id),
			Icon:        iconBaseURL + id + ".png",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan items dump: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyDump
	}

	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Tier != items[j].Tier {
			return items[i].Tier < items[j].Tier
		}
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})

	return items, nil
}
