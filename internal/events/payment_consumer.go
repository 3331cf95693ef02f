package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
)

// PaymentRecorder stores captured payments.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, evt schema.PaymentCapturedEvent) error
}

// PaymentEventConsumer listens to payment events and keeps the payment projection current.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	recorder PaymentRecorder
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	recorder PaymentRecorder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, schema.TopicPaymentEvents, logger),
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case schema.PaymentCaptured:
		return c.handlePaymentCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt schema.PaymentCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentCapturedEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	if err := c.recorder.RecordPayment(ctx, evt); err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			c.logger.Error("rejected invalid payment event",
				zap.String("reservation_id", evt.ReservationID.String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	c.logger.Info("payment recorded",
		zap.String("reservation_id", evt.ReservationID.String()),
		zap.String("provider_ref", evt.ProviderRef),
	)
	return nil
}
