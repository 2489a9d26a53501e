package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisibilityDecisions counts VisibilityGate outcomes by status.
	VisibilityDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_visibility_decisions_total",
		Help: "Total number of post visibility decisions by outcome",
	}, []string{"status"})

	// CounterRecounts counts recomputations of cached post counters by kind.
	CounterRecounts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_counter_recounts_total",
		Help: "Total number of post counter recomputations",
	}, []string{"kind", "result"})

	// SignBatchSize records how many storage paths each batch signing call covers.
	SignBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atelier_sign_batch_size",
		Help:    "Number of storage paths signed per batch call",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 50, 100},
	})

	// SignedURLCache counts signed-URL cache lookups by result (hit, miss).
	SignedURLCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_signed_url_cache_total",
		Help: "Signed URL cache lookups by result",
	}, []string{"result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DependencyFailures counts requests that failed on a datastore or storage call.
	DependencyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_dependency_failures_total",
		Help: "Requests answered with 500 because a dependency call failed",
	}, []string{"route"})
)
