package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/albion-craft/internal/crafting"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func silverPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// settingsFlags are the batch settings shared by calc and rank. Flags left
// unset fall back to the stored defaults.
type settingsFlags struct {
	quantity   int
	usageFee   float64
	returnRate float64
	premium    bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.quantity, "quantity", 1, "Number of items to craft")
	cmd.Flags().Float64Var(&f.usageFee, "usage-fee", 0, "Crafting station fee per item in silver")
	cmd.Flags().Float64Var(&f.returnRate, "return-rate", 0, "Resource return rate in percent")
	cmd.Flags().BoolVar(&f.premium, "premium", true, "Use the premium market tax rate")
}

func (f *settingsFlags) resolve(ctx context.Context, cmd *cobra.Command, svc *Services) (crafting.Settings, error) {
	d, err := svc.Defaults.Defaults(ctx)
	if err != nil {
		return crafting.Settings{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	s := crafting.Settings{
		CraftQuantity: d.CraftQuantity,
		UsageFee:      d.UsageFee,
		ReturnRate:    d.ReturnRate,
		HasPremium:    d.HasPremium,
	}

	flags := cmd.Flags()
	if flags.Changed("quantity") {
		s.CraftQuantity = f.quantity
	}
	if flags.Changed("usage-fee") {
		s.UsageFee = f.usageFee
	}
	if flags.Changed("return-rate") {
		s.ReturnRate = f.returnRate
	}
	if flags.Changed("premium") {
		s.HasPremium = f.premium
	}
	return s, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
