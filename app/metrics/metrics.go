// Package metrics defines the Prometheus collectors for the blog API and the
// handler that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	VotesTotal           *prometheus.CounterVec
	VoteConflictsTotal   prometheus.Counter
	SearchQueriesTotal   *prometheus.CounterVec
	SearchResultsCount   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "votes_total",
				Help: "Applied votes by transition (added, removed, switched).",
			},
			[]string{"transition"},
		),
		VoteConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vote_conflicts_total",
				Help: "Vote transactions that lost a write race and were retried or abandoned.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Search queries by outcome (hit, zero_result, invalid, error).",
			},
			[]string{"outcome"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of matching posts per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.VotesTotal,
		m.VoteConflictsTotal,
		m.SearchQueriesTotal,
		m.SearchResultsCount,
	)
	return m
}

// CacheStatsFunc reports cumulative cache hits and misses.
type CacheStatsFunc func() (hits, misses int64)

// RegisterSearchCache exposes the search result cache counters and the
// indexed post count, read on every scrape.
func (m *Metrics) RegisterSearchCache(stats CacheStatsFunc, indexed func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Search result cache hits.",
		}, func() float64 {
			hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Search result cache misses.",
		}, func() float64 {
			_, misses := stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "search_indexed_posts",
			Help: "Posts currently held in the search index.",
		}, func() float64 {
			return float64(indexed())
		}),
	)
}

// ObserveVote counts an applied vote by transition: added, removed or switched.
func (m *Metrics) ObserveVote(transition string) {
	if m == nil {
		return
	}
	m.VotesTotal.WithLabelValues(transition).Inc()
}

func (m *Metrics) ObserveVoteConflict() {
	if m == nil {
		return
	}
	m.VoteConflictsTotal.Inc()
}

func (m *Metrics) ObserveSearch(outcome string, results int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	if outcome == "hit" || outcome == "zero_result" {
		m.SearchResultsCount.Observe(float64(results))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
