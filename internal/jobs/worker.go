package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
)

// EventTracker receives one analytics event per finished job.
type EventTracker interface {
	Track(event analytics.CloudEvent)
}

// Worker builds the clouds of queued jobs.
type Worker struct {
	builder *Builder
	store   store.Store
	events  EventTracker
	metrics *metrics.Metrics
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// WorkerConfig collects the Worker dependencies. Cache, Events and Metrics
// are optional.
type WorkerConfig struct {
	Engine  *cloud.Engine
	Store   store.Store
	Cache   *cache.CloudCache
	Events  EventTracker
	Metrics *metrics.Metrics
	Timeout time.Duration
}

func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		builder: NewBuilder(cfg.Engine, cfg.Cache, cfg.Timeout),
		store:   cfg.Store,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond},
		logger:  slog.Default().With("component", "cloud-worker"),
	}
}

// Handle is a kafka.MessageHandler. Generation errors are final and stored
// on the record; storage errors are returned so the job is retried.
// Redelivered jobs whose record is no longer pending are acknowledged
// without rework.
func (w *Worker) Handle(ctx context.Context, key []byte, value []byte) error {
	job, err := kafka.DecodeJSON[JobEvent](value)
	if err != nil {
		w.logger.Error("failed to decode job", "key", string(key), "error", err)
		return err
	}
	log := logger.Scoped(ctx, w.logger.With("job_id", job.ID))

	rec, err := w.store.Get(ctx, job.ID)
	switch {
	case errors.Is(err, apperrors.ErrCloudNotFound):
		rec = job.record()
	case err != nil:
		return fmt.Errorf("loading job %s: %w", job.ID, err)
	}
	if rec.Status != store.StatusPending {
		log.Info("job already finished", "status", rec.Status)
		return nil
	}

	start := time.Now()
	result, hit, genErr := w.builder.Build(ctx, job.request())
	latency := time.Since(start)
	if genErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	event := analytics.CloudEvent{
		CloudID:   job.ID,
		Source:    job.Source,
		Mode:      analytics.ModeJob,
		Requested: job.Words,
		CacheHit:  hit,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	}
	if genErr != nil {
		rec.Fail(genErr)
		event.Type = analytics.EventCloudFailed
		event.Error = genErr.Error()
		log.Warn("cloud job failed", "error", genErr, "latency_ms", latency.Milliseconds())
	} else {
		rec.Complete(result)
		event.Type = analytics.EventCloudGenerated
		event.Size = result.Size
		event.UniqueWords = result.UniqueWords
		event.TotalWords = result.TotalWords
		event.Clamped = result.Clamped
		log.Info("cloud job complete",
			"size", result.Size,
			"clamped", result.Clamped,
			"cache_hit", hit,
			"latency_ms", latency.Milliseconds(),
		)
	}

	if err := resilience.Retry(ctx, "store cloud job", w.retry, func() error {
		return w.store.Put(ctx, rec)
	}); err != nil {
		return fmt.Errorf("storing job %s: %w", job.ID, err)
	}
	w.observe(event, genErr, latency)
	if w.events != nil {
		w.events.Track(event)
	}
	return nil
}

func (w *Worker) observe(event analytics.CloudEvent, genErr error, latency time.Duration) {
	if w.metrics == nil {
		return
	}
	if genErr != nil {
		w.metrics.JobsProcessed.WithLabelValues("failed").Inc()
		w.metrics.ObserveFailure(apperrors.Reason(genErr))
		return
	}
	w.metrics.JobsProcessed.WithLabelValues("complete").Inc()
	w.metrics.ObserveCloud(string(analytics.ModeJob), event.CacheHit, latency, event.TotalWords, event.Size)
}
