package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Simplici0/albion-craft/internal/metrics"
	"github.com/Simplici0/albion-craft/internal/profit"
)

// Fetcher loads live prices.
type Fetcher interface {
	Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error)
}

// SnapshotStore persists the last known price of each item.
type SnapshotStore interface {
	UpsertPrices(ctx context.Context, prices []profit.MarketPrice, fetchedAt time.Time) error
	LatestPrices(ctx context.Context, ids []string) ([]profit.MarketPrice, error)
}

// Service serves prices from a TTL cache, then the live API, then stored
// snapshots when the API is down.
type Service struct {
	fetcher Fetcher
	store   SnapshotStore
	cache   *gocache.Cache
	clock   Clock
	metrics *metrics.Collector
}

// NewService wires a price service. store may be nil.
func NewService(f Fetcher, store SnapshotStore, ttl time.Duration, clock Clock, m *metrics.Collector) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{
		fetcher: f,
		store:   store,
		cache:   gocache.New(ttl, 2*ttl),
		clock:   clock,
		metrics: m,
	}
}

// Prices returns one price per distinct id, in request order.
func (s *Service) Prices(ctx context.Context, ids []string) ([]profit.MarketPrice, error) {
	ids = NormalizeIDs(ids)

	found := make(map[string]profit.MarketPrice, len(ids))
	var misses []string
	for _, id := range ids {
		if cached, ok := s.cache.Get(id); ok {
			s.metrics.CacheLookup("prices", true)
			found[id] = cached.(profit.MarketPrice)
			continue
		}
		s.metrics.CacheLookup("prices", false)
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		fresh, err := s.fetcher.Prices(ctx, misses)
		if err != nil {
			fallback, ferr := s.fromSnapshots(ctx, misses, err)
			if ferr != nil {
				return nil, ferr
			}
			fresh = fallback
		} else {
			s.remember(ctx, fresh)
		}
		for _, mp := range fresh {
			found[mp.ItemID] = mp
		}
	}

	out := make([]profit.MarketPrice, 0, len(ids))
	for _, id := range ids {
		mp, ok := found[id]
		if !ok {
			mp = Missing(id, s.clock.Now())
		}
		out = append(out, mp)
	}
	return out, nil
}

// Invalidate drops every cached price.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

func (s *Service) remember(ctx context.Context, prices []profit.MarketPrice) {
	available := make([]profit.MarketPrice, 0, len(prices))
	for _, mp := range prices {
		s.cache.SetDefault(mp.ItemID, mp)
		if mp.IsAvailable {
			available = append(available, mp)
		}
	}

	if s.store == nil || len(available) == 0 {
		return
	}
	if err := s.store.UpsertPrices(ctx, available, s.clock.Now()); err != nil {
		slog.Warn("failed to store price snapshots", "error", err, "items", len(available))
	}
}

// fromSnapshots answers ids from stored snapshots after a live failure. The
// live error is returned when no snapshot exists for any id.
func (s *Service) fromSnapshots(ctx context.Context, ids []string, liveErr error) ([]profit.MarketPrice, error) {
	if s.store == nil {
		return nil, liveErr
	}
	snaps, err := s.store.LatestPrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load price snapshots: %w (live: %w)", err, liveErr)
	}
	if len(snaps) == 0 {
		return nil, liveErr
	}

	slog.Warn("market unavailable, serving stored prices", "error", liveErr, "items", len(ids), "snapshots", len(snaps))

	out := make([]profit.MarketPrice, 0, len(snaps))
	for _, mp := range snaps {
		mp.Warning = fmt.Sprintf("Live price unavailable; showing stored price from %s.", mp.Timestamp.UTC().Format(time.RFC3339))
		out = append(out, mp)
	}
	return out, nil
}
