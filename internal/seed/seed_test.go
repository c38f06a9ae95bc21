package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/albion-craft/internal/db"
	"github.com/Simplici0/albion-craft/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 1 {
				t.Fatalf("expected 1 insert in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM crafting_defaults WHERE id = 1`, nil, 1)

	var quantity int
	var usageFee, returnRate float64
	var premium bool
	if err := database.QueryRow(`
		SELECT craft_quantity, usage_fee, return_rate, has_premium
		FROM crafting_defaults
		WHERE id = 1
	`).Scan(&quantity, &usageFee, &returnRate, &premium); err != nil {
		t.Fatalf("query crafting defaults: %v", err)
	}
	if quantity != 1 || usageFee != 250 || returnRate != 15 || !premium {
		t.Fatalf("unexpected seeded defaults: quantity=%d fee=%v return=%v premium=%v", quantity, usageFee, returnRate, premium)
	}
}

func TestRunKeepsEditedDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "seed-edit-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(ctx, database); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if _, err := database.Exec(`UPDATE crafting_defaults SET usage_fee = 900 WHERE id = 1`); err != nil {
		t.Fatalf("edit defaults: %v", err)
	}
	if _, err := Run(ctx, database); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM crafting_defaults WHERE usage_fee = ?`, 900, 1)
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
