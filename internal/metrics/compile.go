package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile pipeline Prometheus metrics.
var (
	CompileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querydsl",
			Name:      "compile_total",
			Help:      "Total number of engine compilations",
		},
		[]string{"engine", "status"}, // status: ok / invalid / error
	)

	CompileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "querydsl",
			Name:      "compile_duration_seconds",
			Help:      "Engine compilation duration in seconds, cache lookups included",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"engine"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querydsl",
			Name:      "query_cache_total",
			Help:      "Compiled query cache lookups",
		},
		[]string{"layer", "result"}, // layer: l1 / l2, result: hit / miss / error
	)

	CacheBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "querydsl",
			Name:      "query_cache_breaker_state",
			Help:      "L2 cache circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querydsl",
			Name:      "catalog_reloads_total",
			Help:      "Engine catalog reloads",
		},
		[]string{"result"}, // ok / error
	)

	CatalogRevision = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "querydsl",
			Name:      "catalog_revision",
			Help:      "Revision of the active engine catalog",
		},
	)
)

var registerOnce sync.Once

// Register adds the HTTP and compile pipeline metrics to the default
// registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpInFlight)
		prometheus.MustRegister(CompileTotal)
		prometheus.MustRegister(CompileDuration)
		prometheus.MustRegister(CacheTotal)
		prometheus.MustRegister(CacheBreakerState)
		prometheus.MustRegister(CatalogReloadsTotal)
		prometheus.MustRegister(CatalogRevision)
	})
}
