package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/db"
	"github.com/Simplici0/albion-craft/internal/migrations"
	"github.com/Simplici0/albion-craft/internal/seed"
)

// newMigrateCommand applies the schema without starting any service, which
// is how production databases are prepared.
func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			if err := migrations.Up(ctx, database); err != nil {
				return err
			}
			stats, err := seed.Run(ctx, database)
			if err != nil {
				return err
			}
			version, err := migrations.Version(ctx, database)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s at schema version %d (%d defaults inserted)\n",
				cfg.Database.Path, version, stats.Inserts)
			return nil
		},
	}
}
