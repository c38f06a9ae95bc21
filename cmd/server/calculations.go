package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/itemid"
	"github.com/Simplici0/albion-craft/internal/store"
)

type createCalculationRequest struct {
	ItemID        string   `json:"itemId" validate:"required"`
	Tier          *int     `json:"tier"`
	Enchantment   *int     `json:"enchantment"`
	CraftQuantity *int     `json:"craftQuantity"`
	UsageFee      *float64 `json:"usageFee"`
	ReturnRate    *float64 `json:"returnRate"`
	HasPremium    *bool    `json:"hasPremium"`
	Title         string   `json:"title" validate:"max=200"`
	Notes         string   `json:"notes" validate:"max=2000"`
}

func (s *server) handleCreateCalculation(w http.ResponseWriter, r *http.Request) {
	var body createCalculationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := s.validator.Validate(body); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}

	d, err := s.store.Defaults(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to save calculation", err)
		return
	}
	req := crafting.Request{
		ItemID:      body.ItemID,
		Tier:        itemid.Tier(body.ItemID, 4),
		Enchantment: itemid.Enchantment(body.ItemID),
		Settings: crafting.Settings{
			CraftQuantity: d.CraftQuantity,
			UsageFee:      d.UsageFee,
			ReturnRate:    d.ReturnRate,
			HasPremium:    d.HasPremium,
		},
	}
	if body.Tier != nil {
		req.Tier = *body.Tier
	}
	if body.Enchantment != nil {
		req.Enchantment = *body.Enchantment
	}
	if body.CraftQuantity != nil {
		req.CraftQuantity = *body.CraftQuantity
	}
	if body.UsageFee != nil {
		req.UsageFee = *body.UsageFee
	}
	if body.ReturnRate != nil {
		req.ReturnRate = *body.ReturnRate
	}
	if body.HasPremium != nil {
		req.HasPremium = *body.HasPremium
	}

	ev, err := s.crafting.Evaluate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Failed to calculate profit", err)
		return
	}

	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = ev.Name
	}
	saved, err := s.store.SaveCalculation(r.Context(), store.Calculation{
		ItemID: ev.ItemID,
		Title:  title,
		Notes:  strings.TrimSpace(body.Notes),
		Params: store.CalculationParams{
			Tier:          ev.Tier,
			Enchantment:   ev.Enchantment,
			CraftQuantity: req.CraftQuantity,
			UsageFee:      req.UsageFee,
			ReturnRate:    req.ReturnRate,
			HasPremium:    req.HasPremium,
		},
		Result:    ev.Result,
		Materials: ev.Materials,
	})
	if err != nil {
		writeServiceError(w, "Failed to save calculation", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.store.ListCalculations(r.Context(), query)
	if err != nil {
		writeServiceError(w, "Failed to load calculations", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCalculation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to load calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) handleCalculationText(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCalculation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Failed to load calculation", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calculationText(c)))
}

// calculationText renders a saved calculation for pasting into chat.
func calculationText(c store.Calculation) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	yesNo := "no"
	if c.Params.HasPremium {
		yesNo = "yes"
	}

	fmt.Fprintf(&b, "%s\n", c.Title)
	fmt.Fprintf(&b, "Item: %s (%s)\n", itemid.DisplayName(c.ItemID), c.ItemID)
	fmt.Fprintf(&b, "Saved: %s\n", c.CreatedAt.Format("2006-01-02 15:04 UTC"))
	b.WriteString("\nSettings:\n")
	p.Fprintf(&b, "- Quantity: %d\n", c.Params.CraftQuantity)
	p.Fprintf(&b, "- Usage fee: %.0f silver per item\n", c.Params.UsageFee)
	p.Fprintf(&b, "- Return rate: %.1f%%\n", c.Params.ReturnRate)
	fmt.Fprintf(&b, "- Premium: %s\n", yesNo)

	b.WriteString("\nMaterials per craft:\n")
	for _, line := range c.Materials {
		p.Fprintf(&b, "- %s x%d @ %.0f = %.0f", line.Material.Name, line.Material.Quantity, line.UnitPrice, line.TotalCost)
		if !line.IsAvailable {
			b.WriteString(" (no price)")
		}
		b.WriteString("\n")
	}

	r := c.Result
	b.WriteString("\nBreakdown:\n")
	p.Fprintf(&b, "Material cost: %.0f\n", r.RawMaterialCost)
	p.Fprintf(&b, "Return discount: -%.0f\n", r.ReturnDiscount)
	p.Fprintf(&b, "Usage fees: %.0f\n", r.TotalUsageFee)
	p.Fprintf(&b, "Total cost: %.0f\n", r.TotalCraftingCost)
	p.Fprintf(&b, "Sell price: %.0f (market %.0f)\n", r.ExpectedSellPrice, r.MarketPrice)
	p.Fprintf(&b, "Revenue: %.0f\n", r.GrossRevenue)
	p.Fprintf(&b, "Market tax: -%.0f\n", r.MarketTax)
	p.Fprintf(&b, "Net profit: %.0f\n", r.NetProfit)
	p.Fprintf(&b, "Profit margin: %.2f%%\n", r.ProfitMargin)

	if c.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", c.Notes)
	}
	return b.String()
}

func (s *server) handleAdminDefaults(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Defaults(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load defaults", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleAdminDefaultsUpdate(w http.ResponseWriter, r *http.Request) {
	var d store.Defaults
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := s.validator.Validate(d); err != nil {
		writeServiceError(w, "Invalid request", err)
		return
	}

	updated, err := s.store.UpdateDefaults(r.Context(), d)
	if err != nil {
		writeServiceError(w, "Failed to update defaults", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
