// Package metrics holds the prometheus collectors of the render pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chart"

// Request outcomes.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultPlaceholder = "placeholder"
	ResultThrottled   = "throttled"
	ResultBusy        = "busy"
	ResultError       = "error"
	// ResultCanceled counts callers that went away before their chart was ready.
	ResultCanceled    = "canceled"
)

// Metrics records pipeline events. A nil *Metrics records nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	fetchDuration    prometheus.Histogram
	placeholders     *prometheus.CounterVec
	cacheWriteErrors prometheus.Counter
	resolverPasses   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chart requests by outcome.",
		}, []string{"result"}),
		renderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent drawing a chart once a queue slot was granted.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching series from the stats service.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		placeholders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholders_total",
			Help:      "Placeholder images served, by failing stage.",
		}, []string{"stage"}),
		cacheWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Background cache writes that failed.",
		}),
		resolverPasses: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_passes",
			Help:      "Constraint passes needed to resolve a chart state.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

func (m *Metrics) Request(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

func (m *Metrics) Render(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) Fetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) Placeholder(stage string) {
	if m == nil {
		return
	}
	m.placeholders.WithLabelValues(stage).Inc()
}

func (m *Metrics) CacheWriteError() {
	if m == nil {
		return
	}
	m.cacheWriteErrors.Inc()
}

func (m *Metrics) ResolverPasses(n int) {
	if m == nil {
		return
	}
	m.resolverPasses.Observe(float64(n))
}
