package dashboard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for dashboard rendering passes.
type Metrics struct {
	builds      *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
}

// NewMetrics registers the dashboard collectors against registerer, or the
// default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		builds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pivotboard_dashboard_build_duration_seconds",
			Help:    "Duration of a dashboard pass, fetch included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"module"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pivotboard_dashboard_failures_total",
			Help: "Dashboard passes that failed to fetch their periods.",
		}, []string{"module"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pivotboard_records_cache_hits_total",
			Help: "Period record lookups served from cache.",
		}, []string{"module"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pivotboard_records_cache_miss_total",
			Help: "Period record lookups that reached the data source.",
		}, []string{"module"}),
	}
	registerer.MustRegister(m.builds, m.failures, m.cacheHits, m.cacheMisses)
	return m
}

// CacheHit implements source.CacheObserver.
func (m *Metrics) CacheHit(module string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(module).Inc()
}

// CacheMiss implements source.CacheObserver.
func (m *Metrics) CacheMiss(module string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(module).Inc()
}

func (m *Metrics) observeBuild(module string, started time.Time, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failures.WithLabelValues(module).Inc()
		return
	}
	m.builds.WithLabelValues(module).Observe(time.Since(started).Seconds())
}
