package events

import (
	"context"

	"github.com/go-playground/validator/v10"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
)

// ListingProjector applies listing changes to the resource projection.
type ListingProjector interface {
	ApplyListing(ctx context.Context, evt schema.ListingUpsertedEvent) error
	DeactivateListing(ctx context.Context, evt schema.ListingDeactivatedEvent) error
}

// ListingEventConsumer keeps the resource projection in step with listing.events.
type ListingEventConsumer struct {
	consumer  *kafka.Consumer
	projector ListingProjector
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewListingEventConsumer creates a new ListingEventConsumer.
func NewListingEventConsumer(
	brokers []string,
	groupID string,
	projector ListingProjector,
	logger *zap.Logger,
) *ListingEventConsumer {
	return &ListingEventConsumer{
		consumer:  kafka.NewConsumer(brokers, groupID, schema.TopicListingEvents, logger),
		projector: projector,
		validate:  schema.NewValidator(),
		logger:    logger,
	}
}

// Start begins consuming listing events. This blocks until the context is cancelled.
func (c *ListingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ListingEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ListingEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from listing topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil
	}

	switch cloudEvent.Type {
	case schema.ListingUpserted:
		var evt schema.ListingUpsertedEvent
		if !c.decode(cloudEvent, &evt) {
			return nil
		}
		return c.permanentIsHandled(c.projector.ApplyListing(ctx, evt), evt.ListingID.String())

	case schema.ListingDeactivated:
		var evt schema.ListingDeactivatedEvent
		if !c.decode(cloudEvent, &evt) {
			return nil
		}
		return c.permanentIsHandled(c.projector.DeactivateListing(ctx, evt), evt.ListingID.String())

	default:
		c.logger.Debug("ignoring unhandled listing event type", zap.String("type", cloudEvent.Type))
		return nil
	}
}

// decode parses and validates the payload, logging and dropping anything malformed.
func (c *ListingEventConsumer) decode(cloudEvent kafka.CloudEvent, dst interface{}) bool {
	if err := cloudEvent.ParseData(dst); err != nil {
		c.logger.Error("failed to parse listing event data", zap.String("type", cloudEvent.Type), zap.Error(err))
		return false
	}
	if err := c.validate.Struct(dst); err != nil {
		c.logger.Error("invalid listing event", zap.String("type", cloudEvent.Type), zap.Error(err))
		return false
	}
	return true
}

// permanentIsHandled drops validation failures; anything else is retried.
func (c *ListingEventConsumer) permanentIsHandled(err error, listingID string) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.KindValidation) {
		c.logger.Error("listing rejected by projection", zap.String("listing_id", listingID), zap.Error(err))
		return nil
	}
	return err
}
