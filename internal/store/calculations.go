package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/albion-craft/internal/profit"
)

// CalculationParams are the inputs a saved calculation was run with.
type CalculationParams struct {
	Tier          int     `json:"tier"`
	Enchantment   int     `json:"enchantment"`
	CraftQuantity int     `json:"craftQuantity"`
	UsageFee      float64 `json:"usageFee"`
	ReturnRate    float64 `json:"returnRate"`
	HasPremium    bool    `json:"hasPremium"`
}

// Calculation is a saved profit evaluation.
type Calculation struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"createdAt"`
	ItemID    string                `json:"itemId"`
	Title     string                `json:"title"`
	Notes     string                `json:"notes"`
	Params    CalculationParams     `json:"params"`
	Result    profit.Result         `json:"result"`
	Materials []profit.MaterialLine `json:"materials"`
}

// CalculationSummary is one row of the saved calculations list.
type CalculationSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	ItemID       string    `json:"itemId"`
	Title        string    `json:"title"`
	NetProfit    float64   `json:"netProfit"`
	ProfitMargin float64   `json:"profitMargin"`
}

// SaveCalculation stores c, assigning an id and creation time when missing.
func (s *Store) SaveCalculation(ctx context.Context, c Calculation) (Calculation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.Materials == nil {
		c.Materials = []profit.MaterialLine{}
	}

	paramsJSON, err := json.Marshal(c.Params)
	if err != nil {
		return Calculation{}, fmt.Errorf("encode calculation params: %w", err)
	}
	resultJSON, err := json.Marshal(c.Result)
	if err != nil {
		return Calculation{}, fmt.Errorf("encode calculation result: %w", err)
	}
	materialsJSON, err := json.Marshal(c.Materials)
	if err != nil {
		return Calculation{}, fmt.Errorf("encode calculation materials: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (
			id,
			created_at,
			item_id,
			title,
			notes,
			net_profit,
			profit_margin,
			params_json,
			result_json,
			materials_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		formatTime(c.CreatedAt),
		c.ItemID,
		c.Title,
		c.Notes,
		c.Result.NetProfit,
		c.Result.ProfitMargin,
		string(paramsJSON),
		string(resultJSON),
		string(materialsJSON),
	)
	if err != nil {
		return Calculation{}, fmt.Errorf("insert calculation: %w", err)
	}

	c.CreatedAt = parseTime(formatTime(c.CreatedAt))
	return c, nil
}

// ListCalculations returns saved calculations, newest first. A non-empty
// query matches title, notes or item id.
func (s *Store) ListCalculations(ctx context.Context, query string) ([]CalculationSummary, error) {
	search := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, item_id, title, net_profit, profit_margin
		FROM calculations
		WHERE (? = '' OR title LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\' OR item_id LIKE ? ESCAPE '\')
		ORDER BY created_at DESC, id DESC
	`, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	items := make([]CalculationSummary, 0)
	for rows.Next() {
		var item CalculationSummary
		var createdAt string
		if err := rows.Scan(&item.ID, &createdAt, &item.ItemID, &item.Title, &item.NetProfit, &item.ProfitMargin); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		item.CreatedAt = parseTime(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return items, nil
}

// GetCalculation loads one saved calculation.
func (s *Store) GetCalculation(ctx context.Context, id string) (Calculation, error) {
	var c Calculation
	var createdAt, paramsJSON, resultJSON, materialsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, item_id, title, notes, params_json, result_json, materials_json
		FROM calculations
		WHERE id = ?
	`, id).Scan(&c.ID, &createdAt, &c.ItemID, &c.Title, &c.Notes, &paramsJSON, &resultJSON, &materialsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Calculation{}, fmt.Errorf("calculation %s: %w", id, ErrNotFound)
		}
		return Calculation{}, fmt.Errorf("query calculation: %w", err)
	}

	c.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(paramsJSON), &c.Params); err != nil {
		return Calculation{}, fmt.Errorf("decode calculation params: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &c.Result); err != nil {
		return Calculation{}, fmt.Errorf("decode calculation result: %w", err)
	}
	if err := json.Unmarshal([]byte(materialsJSON), &c.Materials); err != nil {
		return Calculation{}, fmt.Errorf("decode calculation materials: %w", err)
	}
	return c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes query match literally inside a LIKE pattern.
func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}
