package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

type outcome[T any] struct {
	value T
	err   error
	panic any
}

// Call runs fn with a context cancelled after timeout and returns its
// result. A timeout error wraps errors.ErrTimeout and
// context.DeadlineExceeded; fn keeps running until it observes the
// cancellation and its late result is dropped. A panic in fn is re-raised
// on the calling goroutine. A non-positive timeout calls fn directly.
func Call[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		var out outcome[T]
		defer func() {
			if p := recover(); p != nil {
				out.panic = p
			}
			done <- out
		}()
		out.value, out.err = fn(ctx2)
	}()

	var zero T
	select {
	case out := <-done:
		if out.panic != nil {
			panic(out.panic)
		}
		return out.value, out.err
	case <-ctx2.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: cancelled: %w", name, err)
		}
		return zero, fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
}

// WithTimeout is Call for functions that only return an error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) error {
	_, err := Call(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
