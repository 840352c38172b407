package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
)

// fakeReader serves queued messages in order and records commits. Once the
// queue is drained it cancels the consume loop.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	r.drained()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func newTestConsumer(ctx context.Context, msgs []kafka.Message, handler MessageHandler) (*Consumer, *fakeReader, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r := &fakeReader{queue: msgs, drained: cancel}
	retry := redeliveryBackoff()
	retry.InitialDelay = time.Millisecond
	retry.MaxDelay = time.Millisecond
	return &Consumer{reader: r, logger: slog.Default(), handler: handler, retry: retry}, r, ctx
}

func TestConsumerRetriesFailedMessageBeforeNext(t *testing.T) {
	var handled []string
	failures := 2
	msgs := []kafka.Message{
		{Key: []byte("a"), Offset: 10},
		{Key: []byte("b"), Offset: 11},
	}
	c, r, ctx := newTestConsumer(context.Background(), msgs, func(_ context.Context, key, _ []byte) error {
		handled = append(handled, string(key))
		if string(key) == "a" && failures > 0 {
			failures--
			return errors.New("store unavailable")
		}
		return nil
	})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []string{"a", "a", "a", "b"}
	if len(handled) != len(want) {
		t.Fatalf("handled = %v, want %v", handled, want)
	}
	for i := range want {
		if handled[i] != want[i] {
			t.Fatalf("handled = %v, want %v", handled, want)
		}
	}
	if len(r.committed) != 2 || r.committed[0] != 10 || r.committed[1] != 11 {
		t.Fatalf("committed offsets = %v, want [10 11]", r.committed)
	}
}

func TestConsumerCommitsSkippedMessage(t *testing.T) {
	calls := 0
	c, r, ctx := newTestConsumer(context.Background(), []kafka.Message{{Key: []byte("bad"), Offset: 3}},
		func(context.Context, []byte, []byte) error {
			calls++
			return Skip(errors.New("malformed"))
		})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if calls != 1 {
		t.Fatalf("skipped message handled %d times, want once", calls)
	}
	if len(r.committed) != 1 || r.committed[0] != 3 {
		t.Fatalf("committed offsets = %v, want [3]", r.committed)
	}
}

func TestConsumerLeavesFailingMessageUncommittedOnShutdown(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	calls := 0
	c, r, ctx := newTestConsumer(ctx, []kafka.Message{{Key: []byte("a"), Offset: 7}},
		func(context.Context, []byte, []byte) error {
			if calls++; calls == 3 {
				stop()
			}
			return errors.New("store unavailable")
		})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(r.committed) != 0 {
		t.Fatalf("committed offsets = %v, want none", r.committed)
	}
}

func TestConsumerPassesRequestID(t *testing.T) {
	var got string
	msgs := []kafka.Message{{
		Key:     []byte("a"),
		Headers: []kafka.Header{{Key: requestIDHeader, Value: []byte("req-9")}},
	}}
	c, _, ctx := newTestConsumer(context.Background(), msgs, func(ctx context.Context, _, _ []byte) error {
		got = logger.RequestIDFromContext(ctx)
		return nil
	})
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got != "req-9" {
		t.Fatalf("request id = %q, want req-9", got)
	}
}
