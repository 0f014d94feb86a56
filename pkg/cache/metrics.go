package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_hits_total",
			Help: "Total number of fresh PokeAPI cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheStaleHits tracks stale entries returned for revalidation
	CacheStaleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_stale_hits_total",
			Help: "Total number of stale PokeAPI cache entries returned for revalidation",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_misses_total",
			Help: "Total number of PokeAPI cache misses",
		},
	)

	// CacheWrites tracks stored entries by layer
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_writes_total",
			Help: "Total number of PokeAPI responses written to cache",
		},
		[]string{"layer"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_304_responses_total",
			Help: "Total number of PokeAPI 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_conditional_requests_total",
			Help: "Total number of conditional PokeAPI requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "purge"
	)
)
