// Package middleware provides reusable HTTP middleware for request IDs,
// CORS, rate limiting, Prometheus metrics, tracing and request timeouts.
package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
)

// Metrics records request count, latency, response size and the in-flight
// gauge, labelled by method and normalized path.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &responseRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			path := normalizePath(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.statusCode())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())
			m.HTTPResponseBytes.WithLabelValues(r.Method, path).Observe(float64(rec.bytes))
		})
	}
}

// responseRecorder remembers the first status code and counts body bytes.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

func (rr *responseRecorder) statusCode() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

var cloudIDSegment = regexp.MustCompile(`^/api/v1/clouds/[^/]+`)

// normalizePath collapses cloud ids so that the path label stays bounded.
// The collection route itself is left alone.
func normalizePath(path string) string {
	return cloudIDSegment.ReplaceAllString(path, "/api/v1/clouds/{id}")
}
