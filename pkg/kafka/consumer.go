// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Values travel as JSON and the request id of the
// publishing context rides along in a message header.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

const requestIDHeader = "request-id"

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ErrSkip marks a handler error as permanent. The consumer logs the message
// and commits past it. Any other error makes the consumer handle the same
// message again.
var ErrSkip = errors.New("message skipped")

// Skip wraps err with ErrSkip.
func Skip(err error) error {
	return fmt.Errorf("%w: %w", ErrSkip, err)
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler. Messages of a partition are handled in order: a message
// is committed only once its handler succeeds or skips it.
type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

// NewConsumer creates a Consumer for topic in the consumer group group. An
// empty group falls back to cfg.ConsumerGroup. New groups start at the
// oldest retained message so queued jobs are not lost.
func NewConsumer(cfg config.KafkaConfig, topic, group string, handler MessageHandler) *Consumer {
	if group == "" {
		group = cfg.ConsumerGroup
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
		retry:   redeliveryBackoff(),
	}
}

// redeliveryBackoff retries a failing message until it succeeds, is skipped
// or the consumer stops.
func redeliveryBackoff() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  math.MaxInt,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Retryable:    func(err error) bool { return !errors.Is(err, ErrSkip) },
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		msgCtx := ctx
		for _, h := range msg.Headers {
			if h.Key == requestIDHeader {
				msgCtx = logger.WithRequestID(ctx, string(h.Value))
			}
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handle(msgCtx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err(), "uncommitted_offset", msg.Offset)
				return c.reader.Close()
			}
			c.logger.Warn("skipping message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle runs the handler on msg until it succeeds. It returns nil on
// success, the skip error for a permanent failure, or an error once ctx
// ends; only the last leaves msg uncommitted.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	attempt := 0
	return resilience.Retry(ctx, "handle message", c.retry, func() error {
		attempt++
		err := c.handler(ctx, msg.Key, msg.Value)
		if err != nil && !errors.Is(err, ErrSkip) {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	})
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into
// T. Malformed values can never succeed, so the error is marked with ErrSkip.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, Skip(fmt.Errorf("decoding kafka message: %w", err))
	}
	return result, nil
}
