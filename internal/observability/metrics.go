package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by cache name and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_cache_lookups_total",
		Help: "Cache-aside lookups by cache and result",
	}, []string{"cache", "result"})

	// AuthEvents counts authentication outcomes by event (login, login_failed, register, logout, token_rejected).
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_auth_events_total",
		Help: "Authentication events by type",
	}, []string{"event"})

	// ContentCreated counts posts and comments created.
	ContentCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_content_created_total",
		Help: "Posts and comments created",
	}, []string{"kind"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
