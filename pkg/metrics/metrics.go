// Package metrics documents the Prometheus metrics exported by the Noark 5 client.
// Metrics are defined in their owning packages (noark, idp, session, pagination, cache)
// and registered through promauto on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all client metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler exposing the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Archive API Metrics (pkg/noark):
//   - noark_requests_total{operation, status} (Counter): requests by API operation and HTTP status
//   - noark_request_duration_seconds{operation} (Histogram): request duration by operation
//   - noark_errors_total{class} (Counter): errors by class (client, server, network)
//   - noark_retries_total{error_class} (Counter): retry attempts when retries are enabled
//   - noark_retry_exhausted_total{error_class} (Counter): requests that used up all attempts
//
// Identity Provider Metrics (pkg/idp):
//   - noark_token_exchanges_total{grant, outcome} (Counter): password and refresh grants
//
// Session Metrics (pkg/session):
//   - noark_token_reuses_total (Counter): calls served with the stored access token
//   - noark_session_expiry_timestamp_seconds (Gauge): expiry of the current access token
//
// Pagination Metrics (pkg/pagination):
//   - noark_pages_fetched_total{collection} (Counter): pages requested per collection
//   - noark_records_fetched_total{collection} (Counter): records returned per collection
//
// Code-list Cache Metrics (pkg/cache):
//   - noark_codelist_cache_hits_total (Counter)
//   - noark_codelist_cache_misses_total (Counter)
//   - noark_codelist_cache_size_bytes (Gauge)
//   - noark_codelist_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Refresh rate
//   rate(noark_token_exchanges_total{grant="refresh_token"}[5m])
//
//   # Archive error rate by class
//   rate(noark_errors_total[5m])
//
//   # P95 query latency
//   histogram_quantile(0.95, rate(noark_request_duration_seconds_bucket{operation="query"}[5m]))
