package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
)

// Limiter decides whether key may make another request.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// RateLimit rejects clients that exceed limiter with 429 and a Retry-After
// header. Clients are keyed by remote IP. Health probes are never limited.
// m may be nil.
func RateLimit(limiter Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			ok, wait := limiter.Allow(ip)
			if !ok {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "client", ip, "retry_after", wait)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
