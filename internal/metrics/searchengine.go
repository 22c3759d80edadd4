package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine Prometheus metrics.
var (
	SearchEngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_engine_requests_total",
			Help:      "Total number of search engine requests",
		},
		[]string{"driver", "operation", "status"}, // status: "ok" / "not_found" / "rejected" / "error"
	)

	SearchEngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"driver", "operation"},
	)
)

var registerSearchEngineOnce sync.Once

// RegisterSearchEngineMetrics registers the search engine collectors. Safe to call more than once.
func RegisterSearchEngineMetrics() {
	registerSearchEngineOnce.Do(func() {
		prometheus.MustRegister(SearchEngineRequestsTotal, SearchEngineRequestDuration)
	})
}

// ObserveSearchEngine records one search engine call.
func ObserveSearchEngine(driver, operation, status string, elapsed time.Duration) {
	SearchEngineRequestsTotal.WithLabelValues(driver, operation, status).Inc()
	SearchEngineRequestDuration.WithLabelValues(driver, operation).Observe(elapsed.Seconds())
}
