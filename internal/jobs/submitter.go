package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
)

// Publisher is the subset of kafka.Producer the Submitter needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Submitter queues generation jobs.
type Submitter struct {
	store     store.Store
	publisher Publisher
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

func NewSubmitter(s store.Store, publisher Publisher) *Submitter {
	return &Submitter{
		store:     s,
		publisher: publisher,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			Retryable: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
		},
		logger: slog.Default().With("component", "job-submitter"),
	}
}

// Submit stores a pending record and queues its job. When the queue cannot
// be reached the record is marked failed and ErrUnavailable is returned.
func (s *Submitter) Submit(ctx context.Context, req Request) (*store.Record, error) {
	if len(req.Document) > MaxDocumentBytes {
		return nil, apperrors.Newf(apperrors.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge,
			"queued documents are limited to %d bytes", MaxDocumentBytes)
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	rec := store.NewRecord(req.Source, req.Options)
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording job: %w", err)
	}

	event := kafka.Event{Key: rec.ID, Value: newJobEvent(rec.ID, req, rec.CreatedAt)}
	err := resilience.Retry(ctx, "publish cloud job", s.retry, func() error {
		return s.publisher.Publish(ctx, event)
	})
	if err != nil {
		rec.Fail(err)
		if putErr := s.store.Put(context.WithoutCancel(ctx), rec); putErr != nil {
			s.logger.Error("failed to mark unqueued job as failed", "job_id", rec.ID, "error", putErr)
		}
		return nil, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable,
			"job queue unavailable: %v", err)
	}

	logger.FromContext(ctx).Info("cloud job queued",
		"job_id", rec.ID,
		"source", rec.Source,
		"bytes", len(req.Document),
		"words", req.Options.Words,
	)
	return rec, nil
}
