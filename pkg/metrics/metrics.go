package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcedureCalls counts invocations by procedure and outcome (ok, error).
	ProcedureCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moresql_procedure_calls_total",
			Help: "Total number of stored procedure calls",
		},
		[]string{"procedure", "status"},
	)
	// ProcedureDuration is the latency of a call, commit included.
	ProcedureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moresql_procedure_duration_seconds",
			Help:    "Stored procedure call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moresql_cache_hits_total",
			Help: "Responses served from the cache",
		},
		[]string{"procedure"},
	)
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moresql_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
