package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheHits counts read-through cache hits by key class.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_cache_hits_total",
		Help: "Total number of cache hits by key class",
	}, []string{"key_class"})

	// CacheMisses counts read-through cache misses by key class.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_cache_misses_total",
		Help: "Total number of cache misses by key class",
	}, []string{"key_class"})

	// EventsPublished counts domain events published by routing key.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_events_published_total",
		Help: "Total number of domain events published by routing key",
	}, []string{"routing_key"})

	// EventsConsumed counts event deliveries by routing key and outcome.
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_events_consumed_total",
		Help: "Total number of event deliveries by routing key and outcome",
	}, []string{"routing_key", "outcome"})

	// EventsDeadLettered counts deliveries routed to the dead-letter queue.
	EventsDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_events_dead_lettered_total",
		Help: "Total number of deliveries dead-lettered after retry exhaustion",
	}, []string{"routing_key"})
)
