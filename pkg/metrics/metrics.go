// Package metrics provides centralized Prometheus metrics registry for the
// PokeAPI client. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and documentation for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - pokeapi_cache_hits_total{layer="memory|redis"} (Counter): Cache hits by layer
//   - pokeapi_cache_misses_total{layer="memory|redis"} (Counter): Cache misses by layer
//   - pokeapi_cache_inflight_joins_total (Counter): Fetches deduplicated onto an in-flight fetch
//   - pokeapi_cache_evictions_total (Counter): Entries removed from the memory cache
//   - pokeapi_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the payload cache
//   - pokeapi_cache_errors_total{operation} (Counter): Payload cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pokeapi_rate_limit_throttles_total (Counter): Requests that waited for the limiter
//   - pokeapi_rate_limit_wait_seconds (Histogram): Time spent waiting for the limiter
//
// Request Metrics (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by resource kind and HTTP status
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by resource kind
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - pokeapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - pokeapi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - pokeapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Memory Cache Hit Rate
//   sum(rate(pokeapi_cache_hits_total{layer="memory"}[5m])) /
//   (sum(rate(pokeapi_cache_hits_total{layer="memory"}[5m])) + sum(rate(pokeapi_cache_misses_total{layer="memory"}[5m])))
//
//   # Share of fetches served by joining an in-flight request
//   rate(pokeapi_cache_inflight_joins_total[5m]) / sum(rate(pokeapi_cache_misses_total{layer="memory"}[5m]))
//
//   # Request Error Rate
//   rate(pokeapi_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
