// Package cli implements the craftcalc command line tool.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/app"
	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/logging"
	"github.com/Simplici0/albion-craft/internal/store"
)

type itemSource interface {
	Items(ctx context.Context) ([]catalog.Item, error)
}

type defaultsSource interface {
	Defaults(ctx context.Context) (store.Defaults, error)
}

// Services are the application pieces the commands run against.
type Services struct {
	Catalog  itemSource
	Prices   crafting.PriceSource
	Crafting *crafting.Service
	Defaults defaultsSource
	Close    func() error
}

// Opener builds Services from a config file path, which may be empty.
type Opener func(ctx context.Context, configPath string) (*Services, error)

// OpenApp is the production Opener.
func OpenApp(ctx context.Context, configPath string) (*Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Services{
		Catalog:  a.Catalog,
		Prices:   a.Market,
		Crafting: a.Crafting,
		Defaults: a.Store,
		Close:    a.Close,
	}, nil
}

type rootOptions struct {
	configPath string
	open       Opener
}

// withServices opens the application for the duration of fn.
func (o *rootOptions) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := o.open(ctx, o.configPath)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(ctx, svc)
}

// NewRootCommand creates the craftcalc command tree.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}

	rootCmd := &cobra.Command{
		Use:   "craftcalc",
		Short: "Albion Online crafting profit calculator",
		Long: `craftcalc looks up items, recipes and market prices and works out the
profit of crafting a batch.

Examples:
  craftcalc items --category weapons --tier 4
  craftcalc prices T4_ORE T3_METALBAR
  craftcalc calc T4_MAIN_SWORD --quantity 10 --return-rate 24.8
  craftcalc rank --tier 5 --limit 10
  craftcalc migrate`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to config file (defaults to ./config.yaml when present)")

	rootCmd.AddCommand(newItemsCommand(opts))
	rootCmd.AddCommand(newPricesCommand(opts))
	rootCmd.AddCommand(newRecipeCommand(opts))
	rootCmd.AddCommand(newCalcCommand(opts))
	rootCmd.AddCommand(newRankCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))

	return rootCmd
}

// Execute runs the CLI with the production services.
func Execute(ctx context.Context) {
	rootCmd := NewRootCommand(OpenApp)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
