// Package metrics exposes the Prometheus registry used by the Pokédex client.
// Metrics are declared with promauto in the packages that record them
// (client, cache, ratelimit, pagination, query); this package serves them
// and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Catalogue
//
// Requests (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): status is the HTTP code, "cache" or "network_error"
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): upstream round trip duration
//   - pokeapi_errors_total{class} (Counter): client, server, network, decode
//   - pokeapi_coalesced_requests_total (Counter): GETs that joined an identical in-flight request
//
// Cache (pkg/cache):
//   - pokeapi_cache_hits_total{layer} (Counter): fresh hits, layer is "memory" or "redis"
//   - pokeapi_cache_stale_hits_total{layer} (Counter): stale entries returned for revalidation
//   - pokeapi_cache_misses_total (Counter)
//   - pokeapi_cache_writes_total{layer} (Counter)
//   - pokeapi_304_responses_total (Counter)
//   - pokeapi_conditional_requests_total (Counter)
//   - pokeapi_cache_errors_total{operation} (Counter): get, set, delete, purge
//
// Concurrency gate (pkg/ratelimit):
//   - pokeapi_inflight_requests (Gauge)
//   - pokeapi_gate_wait_seconds (Histogram)
//
// Queries (pkg/pagination, pkg/query):
//   - pokedex_list_items (Gauge): deduplicated items in the most recently updated list
//   - pokedex_list_page_loads_total{result} (Counter): ok, error
//   - pokedex_query_stale_responses_total{kind} (Counter): superseded completions dropped
//   - pokedex_query_results_total{kind, result} (Counter)
//
// Example queries:
//
//	# Cache hit rate
//	sum(rate(pokeapi_cache_hits_total[5m])) /
//	(sum(rate(pokeapi_cache_hits_total[5m])) + rate(pokeapi_cache_misses_total[5m]))
//
//	# Share of coalesced GETs
//	rate(pokeapi_coalesced_requests_total[5m]) / sum(rate(pokeapi_requests_total[5m]))
//
//	# P95 upstream latency
//	histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//	# Superseded detail responses per minute
//	rate(pokedex_query_stale_responses_total{kind="detail"}[1m]) * 60
