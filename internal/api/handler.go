// Package api serves the cloud HTTP API: synchronous generation, job
// submission, stored cloud retrieval and rendering, and cache control.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/render"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Submitter queues asynchronous jobs.
type Submitter interface {
	Submit(ctx context.Context, req jobs.Request) (*store.Record, error)
}

// EventTracker receives one analytics event per synchronous generation.
type EventTracker interface {
	Track(event analytics.CloudEvent)
}

// Config collects the Handler dependencies. Submitter, Events and Metrics
// are optional; without a Submitter the jobs endpoint answers 503.
type Config struct {
	Builder   *jobs.Builder
	Store     store.Store
	Cache     *cache.CloudCache
	Submitter Submitter
	Events    EventTracker
	Metrics   *metrics.Metrics
	Limits    config.CloudConfig
}

type Handler struct {
	builder   *jobs.Builder
	store     store.Store
	cache     *cache.CloudCache
	submitter Submitter
	events    EventTracker
	metrics   *metrics.Metrics
	limits    config.CloudConfig
	logger    *slog.Logger
}

func NewHandler(cfg Config) *Handler {
	c := cfg.Cache
	if c == nil {
		c = cache.New(nil, cache.Config{})
	}
	return &Handler{
		builder:   cfg.Builder,
		store:     cfg.Store,
		cache:     c,
		submitter: cfg.Submitter,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		limits:    cfg.Limits,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// Generate serves POST /api/v1/clouds. The cloud is built inside the
// request, stored, and returned with status 201.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, ok := h.parse(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, hit, err := h.builder.Build(ctx, req)
	latency := time.Since(start)

	rec := store.NewRecord(req.Source, req.Options)
	event := analytics.CloudEvent{
		CloudID:   rec.ID,
		Source:    req.Source,
		Mode:      analytics.ModeSync,
		Requested: req.Options.Words,
		CacheHit:  hit,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	}
	if err != nil {
		event.Type = analytics.EventCloudFailed
		event.Error = err.Error()
		h.track(event)
		if h.metrics != nil {
			h.metrics.ObserveFailure(apperrors.Reason(err))
		}
		log.Warn("cloud generation failed", "source", req.Source, "error", err)
		h.writeAppError(w, err)
		return
	}

	rec.Complete(result)
	if err := h.store.Put(ctx, rec); err != nil {
		log.Error("storing cloud failed", "cloud_id", rec.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "storing cloud failed")
		return
	}

	event.Type = analytics.EventCloudGenerated
	event.Size = result.Size
	event.UniqueWords = result.UniqueWords
	event.TotalWords = result.TotalWords
	event.Clamped = result.Clamped
	h.track(event)
	if h.metrics != nil {
		h.metrics.ObserveCloud(string(analytics.ModeSync), hit, latency, result.TotalWords, result.Size)
	}

	log.Info("cloud generated",
		"cloud_id", rec.ID,
		"source", rec.Source,
		"size", rec.Size,
		"clamped", rec.Clamped,
		"cache_hit", hit,
		"latency_ms", latency.Milliseconds(),
	)
	w.Header().Set("Location", "/api/v1/clouds/"+rec.ID)
	w.Header().Set("X-Cache", cacheHeader(hit))
	h.writeJSON(w, http.StatusCreated, rec)
}

// SubmitJob serves POST /api/v1/jobs and answers 202 with the pending record.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		h.writeError(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}
	req, ok := h.parse(w, r)
	if !ok {
		return
	}
	rec, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		logger.FromContext(r.Context()).Error("job submission failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.JobsSubmitted.Inc()
	}
	w.Header().Set("Location", "/api/v1/clouds/"+rec.ID)
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     rec.ID,
		"status": rec.Status,
		"links": map[string]string{
			"cloud": "/api/v1/clouds/" + rec.ID,
			"html":  "/api/v1/clouds/" + rec.ID + "/html",
		},
	})
}

// ListClouds serves GET /api/v1/clouds?limit=N.
func (h *Handler) ListClouds(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxListLimit {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": map[string]string{"limit": "limit must be between 1 and " + strconv.Itoa(maxListLimit)},
			})
			return
		}
		limit = n
	}
	recs, err := h.store.List(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing clouds failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing clouds failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"clouds": recs, "count": len(recs)})
}

// GetCloud serves GET /api/v1/clouds/{id}.
func (h *Handler) GetCloud(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// CloudHTML serves GET /api/v1/clouds/{id}/html. The page links the
// stylesheet served next to it.
func (h *Handler) CloudHTML(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadComplete(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := render.HTML(w, render.Page{
		Name:       rec.Source,
		Stylesheet: "style.css",
		Entries:    rec.Entries,
	})
	if err != nil {
		h.logger.Error("rendering cloud page failed", "cloud_id", rec.ID, "error", err)
	}
}

// CloudCSS serves GET /api/v1/clouds/{id}/style.css.
func (h *Handler) CloudCSS(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadComplete(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if err := render.CSS(w, rec.Weights()); err != nil {
		h.logger.Error("rendering stylesheet failed", "cloud_id", rec.ID, "error", err)
	}
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !h.cache.Enabled() {
		h.writeError(w, http.StatusServiceUnavailable, "cache is not configured")
		return
	}
	n, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "cache invalidation failed")
		return
	}
	logger.FromContext(r.Context()).Info("cache invalidated", "keys", n)
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys": n})
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (jobs.Request, bool) {
	body, doc, err := decodeRequest(w, r, h.limits)
	if err == nil {
		var req jobs.Request
		req, err = validate(body, doc, h.limits)
		if err == nil {
			return req, true
		}
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return jobs.Request{}, false
	}
	h.writeAppError(w, err)
	return jobs.Request{}, false
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrCloudNotFound) {
			h.writeError(w, http.StatusNotFound, "cloud not found")
			return nil, false
		}
		logger.FromContext(r.Context()).Error("loading cloud failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "loading cloud failed")
		return nil, false
	}
	return rec, true
}

func (h *Handler) loadComplete(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	rec, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	switch rec.Status {
	case store.StatusComplete:
		return rec, true
	case store.StatusPending:
		h.writeError(w, http.StatusConflict, "cloud is still pending")
	default:
		h.writeError(w, http.StatusConflict, "cloud generation failed: "+rec.Error)
	}
	return nil, false
}

func (h *Handler) track(event analytics.CloudEvent) {
	if h.events != nil {
		h.events.Track(event)
	}
}

// writeAppError maps err to its status. Client errors carry their message;
// server errors are reported generically.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		h.writeError(w, status, "internal error")
		return
	}
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeError(w, status, msg)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
