// Package metrics provides the Prometheus registry and exposition handler for
// the catalog service. All metrics are defined in their respective packages
// (cache, httpapi, store) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{region} (Counter): Lookups answered from the region
//   - catalog_cache_misses_total{region} (Counter): Lookups that found no live entry
//   - catalog_cache_evictions_total{region, reason} (Counter): Entries removed (capacity, expired, invalidated)
//   - catalog_cache_entries{region} (Gauge): Entries currently held
//   - catalog_cache_loads_total{region} (Counter): Read-through loads against the data source
//   - catalog_cache_load_errors_total{region} (Counter): Failed read-through loads
//   - catalog_cache_stale_puts_dropped_total{region} (Counter): Loads discarded after a concurrent invalidation
//
// HTTP Metrics (pkg/httpapi):
//   - catalog_http_request_duration_seconds{route, status} (Histogram): Request duration
//   - catalog_http_slow_requests_total{route} (Counter): Requests above the slow threshold
//   - catalog_http_not_modified_total{route} (Counter): 304 Not Modified responses
//
// Store Metrics (pkg/store):
//   - catalog_store_connect_retries_total{store} (Counter): Startup connection retries
//   - catalog_store_connect_backoff_seconds{store} (Histogram): Backoff before each retry
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate per region
//   sum by (region) (rate(catalog_cache_hits_total[5m])) /
//   (sum by (region) (rate(catalog_cache_hits_total[5m])) + sum by (region) (rate(catalog_cache_misses_total[5m])))
//
//   # Loader failure rate
//   rate(catalog_cache_load_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, sum by (le, route) (rate(catalog_http_request_duration_seconds_bucket[5m])))
//
//   # 304 Response Rate
//   sum(rate(catalog_http_not_modified_total[5m])) / sum(rate(catalog_http_request_duration_seconds_count[5m]))
