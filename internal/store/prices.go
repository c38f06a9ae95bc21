package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/albion-craft/internal/profit"
)

// UpsertPrices records the latest observed price of each item.
func (s *Store) UpsertPrices(ctx context.Context, prices []profit.MarketPrice, fetchedAt time.Time) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price snapshot transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_snapshots (item_id, price, city, observed_at, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			price = excluded.price,
			city = excluded.city,
			observed_at = excluded.observed_at,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare price snapshot upsert: %w", err)
	}
	defer stmt.Close()

	fetched := formatTime(fetchedAt)
	for _, mp := range prices {
		observed := mp.Timestamp
		if observed.IsZero() {
			observed = fetchedAt
		}
		if _, err := stmt.ExecContext(ctx, mp.ItemID, mp.Price, mp.City, formatTime(observed), fetched); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert price snapshot %s: %w", mp.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price snapshots: %w", err)
	}
	return nil
}

// LatestPrices returns the stored snapshots for ids. Items without a
// snapshot are omitted.
func (s *Store) LatestPrices(ctx context.Context, ids []string) ([]profit.MarketPrice, error) {
	if len(ids) == 0 {
		return []profit.MarketPrice{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, price, city, observed_at
		FROM price_snapshots
		WHERE item_id IN (`+placeholders+`)
		ORDER BY item_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query price snapshots: %w", err)
	}
	defer rows.Close()

	prices := make([]profit.MarketPrice, 0, len(ids))
	for rows.Next() {
		var mp profit.MarketPrice
		var observed string
		if err := rows.Scan(&mp.ItemID, &mp.Price, &mp.City, &observed); err != nil {
			return nil, fmt.Errorf("scan price snapshot: %w", err)
		}
		mp.Timestamp = parseTime(observed)
		mp.IsAvailable = mp.Price > 0
		prices = append(prices, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price snapshots: %w", err)
	}
	return prices, nil
}
