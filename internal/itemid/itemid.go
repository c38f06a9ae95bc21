// Package itemid parses and rewrites Albion item identifiers such as
// "T4_2H_BOW@2", where the tier and enchantment are baked into the string.
package itemid

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	MinTier        = 1
	MaxTier        = 8
	MaxEnchantment = 4
)

var (
	tierPattern    = regexp.MustCompile(`T(\d)`)
	enchantPattern = regexp.MustCompile(`@(\d)`)
	tierPrefix     = regexp.MustCompile(`^T\d_`)
)

// Tier returns the first tier digit in id, or def when there is none.
func Tier(id string, def int) int {
	m := tierPattern.FindStringSubmatch(id)
	if m == nil {
		return def
	}
	tier, _ := strconv.Atoi(m[1])
	return tier
}

// Enchantment returns the "@n" enchantment level of id, or 0.
func Enchantment(id string) int {
	m := enchantPattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	level, _ := strconv.Atoi(m[1])
	return level
}

// Base strips the enchantment suffix.
func Base(id string) string {
	base, _, _ := strings.Cut(id, "@")
	return base
}

// Variant rewrites id for the given tier and enchantment. Enchantment 0 is
// the bare id since the market data has no "@0" entries.
func Variant(id string, tier, enchantment int) string {
	base := Base(id)
	if loc := tierPattern.FindStringIndex(base); loc != nil {
		base = base[:loc[0]] + "T" + strconv.Itoa(tier) + base[loc[1]:]
	}
	if enchantment <= 0 {
		return base
	}
	return base + "@" + strconv.Itoa(enchantment)
}

// DisplayName turns an id into a readable name, e.g. "T4_MAIN_SWORD" becomes
// "Tier 4 Main Sword".
func DisplayName(id string) string {
	m := tierPattern.FindStringSubmatch(id)

	name := tierPrefix.ReplaceAllString(id, "")
	name = strings.ReplaceAll(name, "_", " ")
	name = titleCase(strings.ToLower(name))

	if m == nil {
		return name
	}
	return "Tier " + m[1] + " " + name
}

func titleCase(s string) string {
	out := []rune(s)
	for i, r := range out {
		if i == 0 || !isWordRune(out[i-1]) {
			out[i] = unicode.ToUpper(r)
		}
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
