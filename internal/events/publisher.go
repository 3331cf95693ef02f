package events

import (
	"context"
	"strings"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
)

// EventWriter is the part of the Kafka producer the publisher needs.
type EventWriter interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// Publisher wraps domain events in CloudEvents and writes them to reservation.events.
type Publisher struct {
	writer EventWriter
}

// NewPublisher creates a new Publisher.
func NewPublisher(writer EventWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Publish writes one event. key keeps every event of one reservation on one partition.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, data interface{}) error {
	ce, err := kafka.NewCloudEvent(schema.Source, eventType, data)
	if err != nil {
		return err
	}
	return p.writer.PublishEventWithKey(ctx, topicFor(eventType), key, ce)
}

func topicFor(eventType string) string {
	if strings.HasPrefix(eventType, "reservation.") || strings.HasPrefix(eventType, "refund.") {
		return schema.TopicReservationEvents
	}
	return schema.TopicNotificationEvents
}
