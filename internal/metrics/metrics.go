package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "albion_craft"

// Collector holds the service metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	registry *prometheus.Registry

	calculationsTotal       *prometheus.CounterVec
	upstreamDurationSeconds *prometheus.HistogramVec
	upstreamErrorsTotal     *prometheus.CounterVec
	cacheLookupsTotal       *prometheus.CounterVec
}

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		calculationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "crafting",
				Name:      "calculations_total",
				Help:      "Profit calculations by outcome",
			},
			[]string{"outcome"},
		),

		upstreamDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests to external data sources",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source", "status"},
		),

		upstreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Failed requests to external data sources",
			},
			[]string{"source"},
		),

		cacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}

	c.registry.MustRegister(
		c.calculationsTotal,
		c.upstreamDurationSeconds,
		c.upstreamErrorsTotal,
		c.cacheLookupsTotal,
		prometheus.NewGoCollector(),
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveCalculation counts a calculation as profit, loss or no_revenue.
func (c *Collector) ObserveCalculation(netProfit, grossRevenue float64) {
	if c == nil {
		return
	}
	outcome := "loss"
	switch {
	case grossRevenue <= 0:
		outcome = "no_revenue"
	case netProfit > 0:
		outcome = "profit"
	}
	c.calculationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one request to source. status is 0 when no
// response was received.
func (c *Collector) ObserveUpstream(source string, status int, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.upstreamDurationSeconds.WithLabelValues(source, strconv.Itoa(status)).Observe(d.Seconds())
	if err != nil {
		c.upstreamErrorsTotal.WithLabelValues(source).Inc()
	}
}

// CacheLookup records a hit or miss on the named cache.
func (c *Collector) CacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}
