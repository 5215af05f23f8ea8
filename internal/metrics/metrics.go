// Package metrics defines the Prometheus collectors for the curator and
// exposes an HTTP handler for scraping. All methods are safe on a nil
// *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshOK        = "ok"
	RefreshStale     = "stale"
	RefreshDiscarded = "discarded"
)

// Metrics holds all Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal       *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	UpstreamRequests   *prometheus.CounterVec
	CorpusArticles     prometheus.Gauge
	DuplicatesDropped  prometheus.Counter
	FilterQueriesTotal *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_refresh_total",
				Help: "Fetch cycles by outcome (ok, stale, discarded).",
			},
			[]string{"result"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "curator_refresh_duration_seconds",
				Help:    "Wall time of a fetch cycle in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_upstream_requests_total",
				Help: "Upstream searches by channel and result (ok, error).",
			},
			[]string{"channel", "result"},
		),
		CorpusArticles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "curator_corpus_articles",
				Help: "Articles in the installed corpus.",
			},
		),
		DuplicatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "curator_duplicates_dropped_total",
				Help: "Articles removed by title deduplication.",
			},
		),
		FilterQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_filter_queries_total",
				Help: "Feed queries served by sort key.",
			},
			[]string{"sort"},
		),
	}
	m.registry.MustRegister(
		m.RefreshTotal,
		m.RefreshDuration,
		m.UpstreamRequests,
		m.CorpusArticles,
		m.DuplicatesDropped,
		m.FilterQueriesTotal,
	)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records one fetch cycle.
func (m *Metrics) ObserveRefresh(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(elapsed.Seconds())
}

// ObserveUpstream records one upstream search.
func (m *Metrics) ObserveUpstream(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UpstreamRequests.WithLabelValues(channel, result).Inc()
}

// SetCorpusSize records the size of the installed corpus.
func (m *Metrics) SetCorpusSize(n int) {
	if m == nil {
		return
	}
	m.CorpusArticles.Set(float64(n))
}

// AddDuplicates records articles dropped by deduplication.
func (m *Metrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesDropped.Add(float64(n))
}

// ObserveFilterQuery records one feed query.
func (m *Metrics) ObserveFilterQuery(sort string) {
	if m == nil {
		return
	}
	m.FilterQueriesTotal.WithLabelValues(sort).Inc()
}
