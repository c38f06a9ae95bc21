package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/crafting"
)

func newCalcCommand(opts *rootOptions) *cobra.Command {
	var (
		variant  variantFlags
		settings settingsFlags
	)

	cmd := &cobra.Command{
		Use:   "calc ITEM_ID",
		Short: "Calculate the profit of crafting a batch",
		Long: `Price the recipe and the product of an item and print the full profit
breakdown. Settings that are not given use the stored defaults.

Examples:
  craftcalc calc T4_MAIN_SWORD
  craftcalc calc T5_2H_BOW@1 --quantity 20 --usage-fee 400 --return-rate 36.7 --premium=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, enchantment := variant.resolve(cmd, args[0])

			return opts.withServices(cmd, func(ctx context.Context, svc *Services) error {
				s, err := settings.resolve(ctx, cmd, svc)
				if err != nil {
					return err
				}
				ev, err := svc.Crafting.Evaluate(ctx, crafting.Request{
					ItemID:      args[0],
					Tier:        tier,
					Enchantment: enchantment,
					Settings:    s,
				})
				if err != nil {
					return err
				}
				printEvaluation(cmd.OutOrStdout(), ev)
				return nil
			})
		},
	}

	variant.register(cmd)
	settings.register(cmd)
	return cmd
}

func printEvaluation(out io.Writer, ev crafting.Evaluation) {
	p := silverPrinter()
	req := ev.Request

	fmt.Fprintf(out, "%s (%s)\n", ev.Name, ev.ItemID)
	p.Fprintf(out, "Quantity %d, usage fee %.0f, return rate %.1f%%, premium %s\n\n",
		req.CraftQuantity, req.UsageFee, req.ReturnRate, yesNo(req.HasPremium))

	w := newTable(out)
	fmt.Fprintln(w, "MATERIAL\tQTY\tUNIT\tTOTAL\tNOTE")
	for _, line := range ev.Materials {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			line.Material.Name,
			line.Material.Quantity,
			p.Sprintf("%.0f", line.UnitPrice),
			p.Sprintf("%.0f", line.TotalCost),
			line.Warning,
		)
	}
	w.Flush()

	r := ev.Result
	fmt.Fprintln(out)
	w = newTable(out)
	p.Fprintf(w, "Material cost\t%.0f\n", r.RawMaterialCost)
	p.Fprintf(w, "Return discount\t-%.0f\n", r.ReturnDiscount)
	p.Fprintf(w, "Usage fees\t%.0f\n", r.TotalUsageFee)
	p.Fprintf(w, "Total cost\t%.0f\n", r.TotalCraftingCost)
	p.Fprintf(w, "Sell price\t%.0f (market %.0f)\n", r.ExpectedSellPrice, r.MarketPrice)
	p.Fprintf(w, "Revenue\t%.0f\n", r.GrossRevenue)
	p.Fprintf(w, "Market tax\t-%.0f\n", r.MarketTax)
	p.Fprintf(w, "Net profit\t%.0f\n", r.NetProfit)
	p.Fprintf(w, "Profit per item\t%.0f\n", ev.ProfitPerItem)
	p.Fprintf(w, "Profit margin\t%.2f%%\n", r.ProfitMargin)
	w.Flush()

	if len(ev.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, warning := range ev.Warnings {
			fmt.Fprintf(out, "- %s\n", warning)
		}
	}
}
