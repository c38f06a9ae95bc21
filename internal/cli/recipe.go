package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/itemid"
)

type variantFlags struct {
	tier        int
	enchantment int
}

func (f *variantFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.tier, "tier", 0, "Override the tier in the item id")
	cmd.Flags().IntVar(&f.enchantment, "enchantment", 0, "Override the enchantment in the item id")
}

// resolve returns the tier and enchantment, defaulting to those in the id.
func (f *variantFlags) resolve(cmd *cobra.Command, id string) (int, int) {
	tier := itemid.Tier(id, 4)
	enchantment := itemid.Enchantment(id)
	if cmd.Flags().Changed("tier") {
		tier = f.tier
	}
	if cmd.Flags().Changed("enchantment") {
		enchantment = f.enchantment
	}
	return tier, enchantment
}

func newRecipeCommand(opts *rootOptions) *cobra.Command {
	var variant variantFlags

	cmd := &cobra.Command{
		Use:   "recipe ITEM_ID",
		Short: "Show the materials needed per craft",
		Long: `Show the materials needed to craft one unit of an item.

Examples:
  craftcalc recipe T4_MAIN_SWORD
  craftcalc recipe T4_2H_BOW --tier 6 --enchantment 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, enchantment := variant.resolve(cmd, args[0])

			return opts.withServices(cmd, func(ctx context.Context, svc *Services) error {
				id, materials, err := svc.Crafting.Recipe(ctx, args[0], tier, enchantment)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n\n", itemid.DisplayName(id), id)
				w := newTable(out)
				fmt.Fprintln(w, "MATERIAL\tNAME\tQUANTITY")
				for _, m := range materials {
					fmt.Fprintf(w, "%s\t%s\t%d\n", m.ItemID, m.Name, m.Quantity)
				}
				return w.Flush()
			})
		},
	}

	variant.register(cmd)
	return cmd
}
