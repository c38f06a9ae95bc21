package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/market"
)

func newPricesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prices ITEM_ID...",
		Short: "Show the lowest sell order for items",
		Long: `Fetch the lowest current sell order across the configured cities.

Ids may be given as separate arguments or comma separated.

Examples:
  craftcalc prices T4_ORE T3_METALBAR
  craftcalc prices T4_MAIN_SWORD,T4_MAIN_SWORD@1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := market.NormalizeIDs(args)
			if len(ids) == 0 {
				return fmt.Errorf("at least one item id is required")
			}

			return opts.withServices(cmd, func(ctx context.Context, svc *Services) error {
				prices, err := svc.Prices.Prices(ctx, ids)
				if err != nil {
					return fmt.Errorf("failed to fetch prices: %w", err)
				}

				p := silverPrinter()
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ITEM\tPRICE\tCITY\tUPDATED\tNOTE")
				for _, mp := range prices {
					price := "-"
					if mp.IsAvailable {
						price = p.Sprintf("%.0f", mp.Price)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						mp.ItemID, price, mp.City, mp.Timestamp.UTC().Format("2006-01-02 15:04"), mp.Warning)
				}
				return w.Flush()
			})
		},
	}
}
