package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"layer"},
	)

	// CacheJoins tracks callers that attached to an in-flight fetch
	CacheJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_inflight_joins_total",
			Help: "Total number of fetches deduplicated onto an in-flight fetch",
		},
	)

	// CacheEvictions tracks entries dropped from the memory layer
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_evictions_total",
			Help: "Total number of entries removed from the memory cache",
		},
	)

	// CacheSize tracks bytes written to the payload store
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pokeapi_cache_size_bytes",
			Help: "Bytes written to the payload cache",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
