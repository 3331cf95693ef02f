// Package notify delivers user and operator notifications for reservation changes.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
)

// EventWriter is the part of the Kafka producer the notifier needs.
type EventWriter interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// KafkaNotifier hands notifications to the notification service over notification.events.
type KafkaNotifier struct {
	writer EventWriter
	now    func() time.Time
}

// NewKafkaNotifier creates a new KafkaNotifier.
func NewKafkaNotifier(writer EventWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

// Notify publishes one NotificationEvent keyed by the recipient.
func (n *KafkaNotifier) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error {
	evt := schema.NotificationEvent{
		UserID:     userID,
		EventType:  eventType,
		Context:    payload,
		OccurredAt: n.now().UTC(),
	}
	ce, err := kafka.NewCloudEvent(schema.Source, schema.NotificationRequested, evt)
	if err != nil {
		return err
	}
	if err := n.writer.PublishEventWithKey(ctx, schema.TopicNotificationEvents, userID.String(), ce); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
