package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Simplici0/albion-craft/internal/crafting"
)

func queryInt(q url.Values, key string) (int, bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", crafting.ErrInvalidRequest, key)
	}
	return v, true, nil
}

func queryFloat(q url.Values, key string) (float64, bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", crafting.ErrInvalidRequest, key)
	}
	return v, true, nil
}

func queryBool(q url.Values, key string) (bool, bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%w: %s must be true or false", crafting.ErrInvalidRequest, key)
	}
	return v, true, nil
}

// settingsFromQuery starts from the stored defaults and applies the
// quantity, usageFee, returnRate and premium query parameters.
func (s *server) settingsFromQuery(ctx context.Context, q url.Values) (crafting.Settings, error) {
	d, err := s.store.Defaults(ctx)
	if err != nil {
		return crafting.Settings{}, err
	}
	settings := crafting.Settings{
		CraftQuantity: d.CraftQuantity,
		UsageFee:      d.UsageFee,
		ReturnRate:    d.ReturnRate,
		HasPremium:    d.HasPremium,
	}

	if v, ok, err := queryInt(q, "quantity"); err != nil {
		return crafting.Settings{}, err
	} else if ok {
		settings.CraftQuantity = v
	}
	if v, ok, err := queryFloat(q, "usageFee"); err != nil {
		return crafting.Settings{}, err
	} else if ok {
		settings.UsageFee = v
	}
	if v, ok, err := queryFloat(q, "returnRate"); err != nil {
		return crafting.Settings{}, err
	} else if ok {
		settings.ReturnRate = v
	}
	if v, ok, err := queryBool(q, "premium"); err != nil {
		return crafting.Settings{}, err
	} else if ok {
		settings.HasPremium = v
	}
	return settings, nil
}
