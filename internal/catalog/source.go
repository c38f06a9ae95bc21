package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Simplici0/albion-craft/internal/metrics"
)

const (
	// DefaultDumpURL is the formatted items list published by ao-data.
	DefaultDumpURL = "https://raw.githubusercontent.com/ao-data/ao-bin-dumps/master/formatted/items.txt"

	itemsCacheKey = "items"
	maxErrorBody  = 500
)

// HTTPSource downloads the items dump and caches the parsed catalog.
type HTTPSource struct {
	url         string
	iconBaseURL string
	client      *http.Client
	cache       *gocache.Cache
	metrics     *metrics.Collector
}

// NewHTTPSource creates a catalog source for dumpURL. Parsed items are kept
// for ttl.
func NewHTTPSource(dumpURL, iconBaseURL string, timeout, ttl time.Duration, m *metrics.Collector) *HTTPSource {
	return &HTTPSource{
		url:         dumpURL,
		iconBaseURL: iconBaseURL,
		client:      &http.Client{Timeout: timeout},
		cache:       gocache.New(ttl, 2*ttl),
		metrics:     m,
	}
}

// Items returns the cached catalog, downloading it when stale.
func (s *HTTPSource) Items(ctx context.Context) ([]Item, error) {
	if cached, ok := s.cache.Get(itemsCacheKey); ok {
		s.metrics.CacheLookup("catalog", true)
		return cached.([]Item), nil
	}
	s.metrics.CacheLookup("catalog", false)

	items, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(itemsCacheKey, items)
	slog.Info("catalog refreshed", "items", len(items), "url", s.url)
	return items, nil
}

// Invalidate drops the cached catalog.
func (s *HTTPSource) Invalidate() {
	s.cache.Flush()
}

func (s *HTTPSource) fetch(ctx context.Context) (items []Item, err error) {
	start := time.Now()
	status := 0
	defer func() {
		s.metrics.ObserveUpstream("catalog", status, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create items request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch items dump: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("items dump returned status %d: %s", resp.StatusCode, string(body))
	}

	items, err = Parse(resp.Body, s.iconBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse items dump: %w", err)
	}
	return items, nil
}
