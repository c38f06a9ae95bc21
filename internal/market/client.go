// Package market fetches item prices from the Albion Online Data Project and
// keeps them cached and persisted.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/profit"
)

const (
	DefaultBaseURL = "https://west.albion-online-data.com/api/v2"

	// MissingPriceWarning is attached to every price that could not be found.
	MissingPriceWarning = "Price not found. Please check https://www.albiononline-tools.com/ or the official market manually."

	// UnknownCity is reported for items without any market entry.
	UnknownCity = "Unknown"

	maxErrorBody = 500
	dateLayout   = "2006-01-02T15:04:05"
)

// DefaultLocations are the royal cities and Caerleon.
var DefaultLocations = []string{"Caerleon", "Bridgewatch", "Lymhurst", "Martlock", "Thetford", "FortSterling"}

// ErrUpstream marks failures talking to the market data API.
var ErrUpstream = errors.New("market data unavailable")

// Clock abstracts time so retries are instant in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now().UTC() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// ClientConfig tunes the market client.
type ClientConfig struct {
	BaseURL           string
	Locations         []string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	BackoffBase       time.Duration
	BatchSize         int
}

// Client calls the price stats endpoint with rate limiting and retries.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	locations   string
	maxRetries  int
	backoffBase time.Duration
	batchSize   int
	clock       Clock
	metrics     *metrics.Collector
}

// NewClient creates a market client. If clock is nil the real clock is used.
func NewClient(cfg ClientConfig, clock Clock, m *metrics.Collector) *Client {
	if clock == nil {
		clock = realClock{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Locations) == 0 {
		cfg.Locations = DefaultLocations
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 3
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		locations:   strings.Join(cfg.Locations, ","),
		maxRetries:  max(cfg.MaxRetries, 0),
		backoffBase: cfg.BackoffBase,
		batchSize:   cfg.BatchSize,
		clock:       clock,
		metrics:     m,
	}
}

// priceEntry is one (item, city, quality) row of the stats response.
type priceEntry struct {
	ItemID           string  `json:"item_id"`
	City             string  `json:"city"`
	Quality          int     `json:"quality"`
	SellPriceMin     float64 `json:"sell_price_min"`
	SellPriceMinDate string  `json:"sell_price_min_date"`
}

// Prices returns one price per requested id, in request order. Each price is
// the lowest valid sell order across the configured cities.
func (c *Client) Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error) {
	ids = NormalizeIDs(ids)
	if len(ids) == 0 {
		return []profit.MarketPrice{}, nil
	}

	var entries []priceEntry
	for start := 0; start < len(ids); start += c.batchSize {
		batch := ids[start:min(start+c.batchSize, len(ids))]
		got, err := c.fetchBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	return aggregate(entries, ids, c.clock.Now()), nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) (entries []priceEntry, err error) {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	endpoint := fmt.Sprintf("%s/stats/prices/%s?%s",
		c.baseURL,
		strings.Join(escaped, ","),
		url.Values{"locations": {c.locations}}.Encode(),
	)

	body, err := c.request(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode prices: %v", ErrUpstream, err)
	}
	slog.Debug("market batch fetched", "items", len(ids), "entries", len(entries))
	return entries, nil
}

// addJitter returns a duration between 50% and 150% of d.
func addJitter(d time.Duration) time.Duration {
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(d) * jitter)
}

// request performs a GET with rate limiting and exponential backoff retries.
// Network errors, 429 and 5xx are retried; other non-2xx fail immediately.
func (c *Client) request(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		body, status, retryAfter, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}

		var retry *retryableError
		if !errors.As(err, &retry) {
			return nil, err
		}
		lastErr = retry

		if attempt >= c.maxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := addJitter(c.backoffBase * time.Duration(1<<attempt))
		if retryAfter > 0 {
			delay = retryAfter
		}
		slog.Warn("market request failed, retrying",
			"attempt", attempt+1,
			"status", status,
			"delay", delay,
			"error", retry.Error(),
		)
		c.clock.Sleep(delay)
	}

	return nil, fmt.Errorf("%w: max retries exceeded: %v", ErrUpstream, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) (body []byte, status int, retryAfter time.Duration, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream("market", status, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create prices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, &retryableError{message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	switch {
	case status == http.StatusTooManyRequests:
		if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && seconds > 0 {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return nil, status, retryAfter, &retryableError{message: "rate limited (429)"}
	case status >= 500:
		return nil, status, 0, &retryableError{message: fmt.Sprintf("server error (%d)", status)}
	case status < 200 || status >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, status, 0, fmt.Errorf("%w: status %d: %s", ErrUpstream, status, string(snippet))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, status, 0, fmt.Errorf("%w: read prices: %v", ErrUpstream, err)
	}
	return body, status, 0, nil
}

type retryableError struct {
	message string
}

func (e *retryableError) Error() string {
	return e.message
}

// aggregate keeps the lowest valid sell_price_min per item. An entry without
// a valid price only stands until a valid one shows up. Every id in ids gets
// a result.
func aggregate(entries []priceEntry, ids []string, now time.Time) []profit.MarketPrice {
	best := make(map[string]profit.MarketPrice, len(ids))

	for _, e := range entries {
		valid := e.SellPriceMin > 0
		existing, ok := best[e.ItemID]
		if ok && !(valid && (!existing.IsAvailable || e.SellPriceMin < existing.Price)) {
			continue
		}

		mp := profit.MarketPrice{
			ItemID:      e.ItemID,
			Price:       max(e.SellPriceMin, 0),
			Timestamp:   parseDate(e.SellPriceMinDate, now),
			City:        e.City,
			IsAvailable: valid,
		}
		if !valid {
			mp.Warning = MissingPriceWarning
		}
		best[e.ItemID] = mp
	}

	out := make([]profit.MarketPrice, 0, len(ids))
	for _, id := range ids {
		mp, ok := best[id]
		if !ok {
			mp = Missing(id, now)
		}
		out = append(out, mp)
	}
	return out
}

// Missing is the placeholder for an item with no market data.
func Missing(id string, now time.Time) profit.MarketPrice {
	return profit.MarketPrice{
		ItemID:      id,
		Price:       0,
		Timestamp:   now,
		City:        UnknownCity,
		IsAvailable: false,
		Warning:     MissingPriceWarning,
	}
}

func parseDate(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(dateLayout, s); err == nil && t.Year() > 1 {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return fallback
}

// NormalizeIDs trims ids, drops blanks and duplicates, and keeps order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
