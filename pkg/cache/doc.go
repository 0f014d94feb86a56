// Package cache provides PokeAPI response caching with pluggable backends.
//
// The manager stores response bodies together with their HTTP validators:
//
// - Freshness from Cache-Control max-age (PokeAPI sends one day), else Expires
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Stale entries with validators are kept for a short window and revalidated
// - Deterministic cache key generation
// - Prometheus metrics for observability
//
// # Backends
//
// MemoryStore keeps entries in an in-process LRU (hashicorp/golang-lru). RedisStore
// shares entries between replicas of the proxy. Neither is a persistence layer:
// commands call Manager.Purge at startup so a new process never serves data cached
// by an earlier one.
//
//	manager := cache.NewManager(cache.NewMemoryStore(2048, time.Hour))
//
//	key := cache.Key{
//		Endpoint:    "/pokemon",
//		QueryParams: url.Values{"offset": {"0"}, "limit": {"50"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from PokeAPI
//	}
//
// # Conditional Requests
//
//	if entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// PokeAPI answers 304 if the resource is unchanged
//	}
//
// # Metrics
//
//   - pokeapi_cache_hits_total{layer} - Fresh cache hits
//   - pokeapi_cache_stale_hits_total{layer} - Stale entries handed out for revalidation
//   - pokeapi_cache_misses_total - Cache misses
//   - pokeapi_cache_writes_total{layer} - Stored responses
//   - pokeapi_304_responses_total - Conditional request successes
//   - pokeapi_conditional_requests_total - Conditional requests sent
//   - pokeapi_cache_errors_total{operation} - Cache operation errors
package cache
