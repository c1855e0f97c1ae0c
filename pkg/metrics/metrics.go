// Package metrics exposes the Prometheus registry shared by the content
// packages. All metrics are defined in their respective packages (client,
// cache, aggregator) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the content packages register with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - cms_cache_hits_total{cache} (Counter): Cache hits by store
//   - cms_cache_misses_total{cache} (Counter): Cache misses by store
//   - cms_cache_evictions_total{cache, reason} (Counter): Removed entries (expired, capacity, cleared)
//   - cms_cache_entries{cache} (Gauge): Resident entries by store
//
// Upstream Metrics (pkg/client):
//   - cms_upstream_requests_total{resource, status} (Counter): Upstream requests by resource and HTTP status
//   - cms_upstream_request_duration_seconds{resource} (Histogram): Upstream request duration
//   - cms_upstream_errors_total{class} (Counter): Failed fetches by error class
//
// Page Metrics (pkg/aggregator):
//   - cms_page_loads_total{page, outcome} (Counter): Page loads (hit, miss, degraded, failed)
//   - cms_page_load_duration_seconds{page} (Histogram): Assembly duration for cache misses
//   - cms_locale_fallbacks_total (Counter): Loads retried with the default locale
//   - cms_coalesced_loads_total{page} (Counter): Loads served by an in-flight load
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cms_cache_hits_total[5m])) /
//   (sum(rate(cms_cache_hits_total[5m])) + sum(rate(cms_cache_misses_total[5m])))
//
//   # Degraded Page Rate
//   sum(rate(cms_page_loads_total{outcome="degraded"}[5m])) / sum(rate(cms_page_loads_total[5m]))
//
//   # Upstream Error Rate
//   rate(cms_upstream_errors_total[5m])
//
//   # P95 Assembly Latency
//   histogram_quantile(0.95, rate(cms_page_load_duration_seconds_bucket[5m]))
