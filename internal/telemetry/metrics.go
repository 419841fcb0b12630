package telemetry

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"fiapcontacts/internal/util"
)

var durationBuckets = metrics.ExponentialBuckets(1e-3, 5, 6)

// Metrics holds the service's Prometheus series.
type Metrics struct {
	set *metrics.Set
}

// NewMetrics creates an isolated metrics set.
func NewMetrics() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// WithMetrics counts requests and records their latency, labelled by method,
// matched route and status. Requests that matched no route share path="unmatched".
func (m *Metrics) WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &util.StatusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		path := RoutePattern(r)
		if path == "" {
			path = "unmatched"
		}
		labels := joinQuote("{method=", r.Method, ",path=", path, ",status=", strconv.Itoa(rec.StatusCode()), "}")
		m.set.GetOrCreateCounter("app_incoming_requests_total" + labels).Inc()
		m.set.GetOrCreatePrometheusHistogramExt("http_request_duration_seconds"+labels, durationBuckets).UpdateDuration(start)
	})
}

// RateLimited counts a write rejected by the limiter.
func (m *Metrics) RateLimited(method string) {
	m.set.GetOrCreateCounter(joinQuote("app_rate_limited_requests_total{method=", method, "}")).Inc()
}

// RateLimitErrors counts limiter backend failures.
func (m *Metrics) RateLimitErrors() {
	m.set.GetOrCreateCounter("app_rate_limit_errors_total").Inc()
}

// WritePrometheus writes the service series followed by Go process metrics.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

// ServeHTTP exposes the metrics in Prometheus text format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	m.WritePrometheus(w)
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }
