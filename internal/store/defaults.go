package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Defaults are the crafting settings used when a request leaves them out.
type Defaults struct {
	CraftQuantity int       `json:"craftQuantity" validate:"min=1"`
	UsageFee      float64   `json:"usageFee" validate:"gte=0"`
	ReturnRate    float64   `json:"returnRate" validate:"gte=0,lte=100"`
	HasPremium    bool      `json:"hasPremium"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FactoryDefaults is the row seeded on first start.
var FactoryDefaults = Defaults{
	CraftQuantity: 1,
	UsageFee:      250,
	ReturnRate:    15,
	HasPremium:    true,
}

// EnsureDefaults inserts the defaults singleton when missing.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crafting_defaults (
			id,
			craft_quantity,
			usage_fee,
			return_rate,
			has_premium,
			updated_at
		) VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		FactoryDefaults.CraftQuantity,
		FactoryDefaults.UsageFee,
		FactoryDefaults.ReturnRate,
		FactoryDefaults.HasPremium,
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert default crafting_defaults: %w", err)
	}
	return nil
}

// Defaults returns the stored crafting defaults.
func (s *Store) Defaults(ctx context.Context) (Defaults, error) {
	if err := s.EnsureDefaults(ctx); err != nil {
		return Defaults{}, err
	}

	var d Defaults
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT craft_quantity, usage_fee, return_rate, has_premium, updated_at
		FROM crafting_defaults
		WHERE id = 1
	`).Scan(
		&d.CraftQuantity,
		&d.UsageFee,
		&d.ReturnRate,
		&d.HasPremium,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Defaults{}, fmt.Errorf("crafting_defaults singleton: %w", ErrNotFound)
		}
		return Defaults{}, fmt.Errorf("query crafting_defaults: %w", err)
	}
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

// UpdateDefaults replaces the crafting defaults and returns the stored row.
func (s *Store) UpdateDefaults(ctx context.Context, d Defaults) (Defaults, error) {
	if err := s.EnsureDefaults(ctx); err != nil {
		return Defaults{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE crafting_defaults
		SET
			craft_quantity = ?,
			usage_fee = ?,
			return_rate = ?,
			has_premium = ?,
			updated_at = ?
		WHERE id = 1
	`,
		d.CraftQuantity,
		d.UsageFee,
		d.ReturnRate,
		d.HasPremium,
		formatTime(s.now()),
	)
	if err != nil {
		return Defaults{}, fmt.Errorf("update crafting_defaults: %w", err)
	}

	return s.Defaults(ctx)
}
