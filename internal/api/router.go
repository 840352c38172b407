package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/middleware"
)

// RouterConfig holds the middleware settings. Limiter and Metrics may be
// nil to disable rate limiting and request metrics. Tracing logs a span
// tree per request.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	Limiter        middleware.Limiter
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Tracing        bool
}

// NewRouter builds the API handler with all routes and middleware.
//
// Route table:
//
//	POST   /api/v1/clouds                 → generate synchronously
//	POST   /api/v1/jobs                   → queue a generation job
//	GET    /api/v1/clouds                 → list stored clouds
//	GET    /api/v1/clouds/{id}            → stored cloud as JSON
//	GET    /api/v1/clouds/{id}/html       → rendered cloud page
//	GET    /api/v1/clouds/{id}/style.css  → stylesheet for the page
//	GET    /api/v1/cache/stats            → cache counters
//	POST   /api/v1/cache/invalidate       → drop cached clouds
//	GET    /health/live, /health/ready    → probes
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Timeout → Metrics → Tracing → handler
func NewRouter(h *Handler, checker *health.Checker, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("POST /api/v1/clouds", h.Generate)
	mux.HandleFunc("GET /api/v1/clouds", h.ListClouds)
	mux.HandleFunc("GET /api/v1/clouds/{id}", h.GetCloud)
	mux.HandleFunc("GET /api/v1/clouds/{id}/html", h.CloudHTML)
	mux.HandleFunc("GET /api/v1/clouds/{id}/style.css", h.CloudCSS)

	mux.HandleFunc("POST /api/v1/jobs", h.SubmitJob)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	var chain http.Handler = mux
	if cfg.Tracing {
		chain = middleware.Tracing(chain)
	}
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	if cfg.RequestTimeout > 0 {
		chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	}
	if cfg.Limiter != nil {
		chain = middleware.RateLimit(cfg.Limiter, cfg.Metrics)(chain)
	}
	chain = middleware.CORS(cfg.CORS)(chain)
	chain = middleware.RequestID(chain)

	return chain
}
