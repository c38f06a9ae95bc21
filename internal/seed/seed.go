package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/albion-craft/internal/store"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureCraftingDefaults(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCraftingDefaults(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM crafting_defaults WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check crafting defaults existence: %w", err)
	}
	if exists {
		return nil
	}

	d := store.FactoryDefaults
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO crafting_defaults (
			id,
			craft_quantity,
			usage_fee,
			return_rate,
			has_premium
		)
		VALUES (1, ?, ?, ?, ?)
	`, d.CraftQuantity, d.UsageFee, d.ReturnRate, d.HasPremium); err != nil {
		return fmt.Errorf("insert crafting defaults singleton: %w", err)
	}
	stats.Inserts++
	return nil
}
