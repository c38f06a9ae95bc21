package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/catalog"
)

const maxRankCandidates = 500

func newRankCommand(opts *rootOptions) *cobra.Command {
	var (
		filters  catalogFlags
		settings settingsFlags
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank items by crafting profit",
		Long: `Evaluate every matching item with the same batch settings and list the
most profitable first. At most 500 catalog items are evaluated per run.

Examples:
  craftcalc rank --category weapons --tier 4
  craftcalc rank --tier 6 --enchantment 1 --quantity 10 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := filters.query(cmd)
			if err != nil {
				return err
			}
			q.Limit = maxRankCandidates

			return opts.withServices(cmd, func(ctx context.Context, svc *Services) error {
				s, err := settings.resolve(ctx, cmd, svc)
				if err != nil {
					return err
				}
				items, err := svc.Catalog.Items(ctx)
				if err != nil {
					return fmt.Errorf("failed to load items: %w", err)
				}
				page := catalog.Filter(items, q)

				ranking, err := svc.Crafting.Rank(ctx, page.Items, s, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(ranking.Entries) == 0 {
					fmt.Fprintln(out, "No craftable items match the filters")
					return nil
				}

				p := silverPrinter()
				w := newTable(out)
				fmt.Fprintln(w, "#\tITEM\tNAME\tNET PROFIT\tPER ITEM\tMARGIN")
				for i, e := range ranking.Entries {
					r := e.Evaluation.Result
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						i+1,
						e.Evaluation.ItemID,
						e.Item.Name,
						p.Sprintf("%.0f", r.NetProfit),
						p.Sprintf("%.0f", e.Evaluation.ProfitPerItem),
						p.Sprintf("%.2f%%", r.ProfitMargin),
					)
				}
				w.Flush()

				sum := ranking.Summary
				fmt.Fprintf(out, "\n%d evaluated, %d profitable, %d without recipe, average margin %.2f%%\n",
					sum.Total, sum.Profitable, ranking.Skipped, sum.AverageMargin)
				if page.HasMore {
					fmt.Fprintf(out, "Only the first %d of %d matching items were evaluated\n", len(page.Items), page.Total)
				}
				return nil
			})
		},
	}

	filters.register(cmd)
	settings.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}
