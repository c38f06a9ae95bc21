package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Simplici0/albion-craft/internal/catalog"
	"github.com/Simplici0/albion-craft/internal/config"
	"github.com/Simplici0/albion-craft/internal/crafting"
	"github.com/Simplici0/albion-craft/internal/market"
	"github.com/Simplici0/albion-craft/internal/recipe"
	"github.com/Simplici0/albion-craft/internal/store"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v before committing the status. Values JSON cannot
// represent, such as an infinite profit, produce a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "Failed to encode response", Details: err.Error()})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	var verr *config.ValidationError
	switch {
	case errors.Is(err, crafting.ErrInvalidRequest), errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, recipe.ErrNoRecipe):
		writeError(w, http.StatusNotFound, "Crafting recipe not found", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, market.ErrUpstream), errors.Is(err, catalog.ErrEmptyDump):
		writeError(w, http.StatusBadGateway, message, err.Error())
	default:
		slog.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
