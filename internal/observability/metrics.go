package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation and hazard-query paths.
type Metrics struct {
	ProviderFetches       *prometheus.CounterVec   // labels: provider, outcome={success,error}
	ProviderFetchDuration *prometheus.HistogramVec // labels: provider
	ProviderEvents        *prometheus.CounterVec   // labels: provider

	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
	AggregatedEvents prometheus.Histogram   // merged events per refresh cycle

	HazardLookups *prometheus.CounterVec // labels: dataset={vs30,fault}, outcome={ok,no_coverage}

	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderFetches,
		m.ProviderFetchDuration,
		m.ProviderEvents,
		m.CacheLookups,
		m.AggregatedEvents,
		m.HazardLookups,
		m.EventsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "provider_fetches_total",
			Help:      "Upstream provider fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_hazard",
			Name:      "provider_fetch_duration_seconds",
			Help:      "Upstream provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider"}),
		ProviderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "provider_events_total",
			Help:      "Events returned by each provider before dedup.",
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "window_cache_lookups_total",
			Help:      "Aggregation window cache lookups by result.",
		}, []string{"result"}),
		AggregatedEvents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_hazard",
			Name:      "aggregated_events",
			Help:      "Merged, deduplicated events per refresh cycle.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		}),
		HazardLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "hazard_lookups_total",
			Help:      "Point hazard lookups by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "events_published_total",
			Help:      "Canonical events published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_hazard",
			Name:      "publish_errors_total",
			Help:      "Failed publishes of canonical events.",
		}),
	}
}
