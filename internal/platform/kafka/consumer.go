package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message. A non-nil error triggers a bounded retry.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

const (
	maxHandlerAttempts = 3
	retryBackoff       = 500 * time.Millisecond
)

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	topic  string
	logger *zap.Logger
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        time.Second,
			StartOffset:    kafkago.FirstOffset,
			CommitInterval: 0,
		}),
		topic:  topic,
		logger: logger,
	}
}

// Consume blocks, dispatching messages to handler until ctx is cancelled.
// Offsets are committed after the handler succeeds or exhausts its retries.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("failed to fetch message", zap.String("topic", c.topic), zap.Error(err))
			if sleepErr := sleepCtx(ctx, time.Second); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		c.dispatch(ctx, handler, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("failed to commit offset",
				zap.String("topic", c.topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, handler MessageHandler, msg kafkago.Message) {
	var err error
	for attempt := 1; attempt <= maxHandlerAttempts; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return
		}
		c.logger.Warn("message handler failed",
			zap.String("topic", c.topic),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if sleepErr := sleepCtx(ctx, retryBackoff*time.Duration(attempt)); sleepErr != nil {
			return
		}
	}
	c.logger.Error("dropping message after retries",
		zap.String("topic", c.topic),
		zap.Int64("offset", msg.Offset),
		zap.String("key", string(msg.Key)),
		zap.Error(err),
	)
}

// Close closes the reader and leaves the group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
