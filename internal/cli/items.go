package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/itemid"
)

type catalogFlags struct {
	search      string
	category    string
	tier        int
	enchantment int
}

func (f *catalogFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive name filter")
	cmd.Flags().StringVar(&f.category, "category", "", "Category: "+categoryList())
	cmd.Flags().IntVar(&f.tier, "tier", 0, "Tier filter (1-8)")
	cmd.Flags().IntVar(&f.enchantment, "enchantment", 0, "Enchantment filter (0-4)")
}

func (f *catalogFlags) query(cmd *cobra.Command) (catalog.Query, error) {
	q := catalog.Query{Search: f.search}

	if f.category != "" && f.category != "all" {
		category := catalog.Category(strings.ToLower(f.category))
		if !slices.Contains(catalog.Categories, category) {
			return catalog.Query{}, fmt.Errorf("unknown category %q (want one of %s)", f.category, categoryList())
		}
		q.Category = category
	}
	if cmd.Flags().Changed("tier") {
		if f.tier < itemid.MinTier || f.tier > itemid.MaxTier {
			return catalog.Query{}, fmt.Errorf("--tier must be between %d and %d", itemid.MinTier, itemid.MaxTier)
		}
		q.Tier = f.tier
	}
	if cmd.Flags().Changed("enchantment") {
		if f.enchantment < 0 || f.enchantment > itemid.MaxEnchantment {
			return catalog.Query{}, fmt.Errorf("--enchantment must be between 0 and %d", itemid.MaxEnchantment)
		}
		enchantment := f.enchantment
		q.Enchantment = &enchantment
	}
	return q, nil
}

func categoryList() string {
	names := make([]string, len(catalog.Categories))
	for i, c := range catalog.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func newItemsCommand(opts *rootOptions) *cobra.Command {
	var (
		filters catalogFlags
		sortBy  string
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Browse craftable items",
		Long: `List craftable items from the ao-data item dump.

Examples:
  craftcalc items --search broadsword
  craftcalc items --category armor --tier 6 --enchantment 2 --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := filters.query(cmd)
			if err != nil {
				return err
			}
			q.Sort = sortBy
			q.Limit = limit
			q.Offset = offset

			return opts.withServices(cmd, func(ctx context.Context, svc *Services) error {
				items, err := svc.Catalog.Items(ctx)
				if err != nil {
					return fmt.Errorf("failed to load items: %w", err)
				}
				page := catalog.Filter(items, q)

				out := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintln(out, "No items match the filters")
					return nil
				}

				w := newTable(out)
				fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tTIER\tENCH")
				for _, it := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", it.ID, it.Name, it.Category, it.Tier, it.Enchantment)
				}
				w.Flush()

				fmt.Fprintf(out, "\nShowing %d of %d matching items (%d total)\n", len(page.Items), page.Total, page.All)
				return nil
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort order: name or tier")
	cmd.Flags().IntVar(&limit, "limit", catalog.PageSize, "Maximum number of items to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of matching items to skip")

	return cmd
}
