// Package schema holds the topics, event types and payloads exchanged over Kafka.
package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topics.
const (
	TopicReservationEvents  = "reservation.events"
	TopicNotificationEvents = "notification.events"
	TopicPaymentEvents      = "payment.events"
	TopicListingEvents      = "listing.events"
)

// Source is the CloudEvent source of everything this service publishes.
const Source = "service-reservation"

// Reservation lifecycle event types, published on reservation.events.
const (
	ReservationCreated    = "reservation.created"
	ReservationConfirmed  = "reservation.confirmed"
	ReservationRejected   = "reservation.rejected"
	ReservationCancelled  = "reservation.cancelled"
	ReservationCheckedIn  = "reservation.checked_in"
	ReservationCompleted  = "reservation.completed"
	ReservationNoShow     = "reservation.no_show"
	RefundRequested       = "refund.requested"
	RefundApproved        = "refund.approved"
	RefundRejected        = "refund.rejected"
	RefundProcessed       = "refund.processed"
	RefundExecutionFailed = "refund.execution_failed"
)

// NotificationRequested is the CloudEvent type on notification.events.
const NotificationRequested = "notification.requested"

// Consumed event types.
const (
	PaymentCaptured    = "payment.captured"
	ListingUpserted    = "listing.upserted"
	ListingDeactivated = "listing.deactivated"
)

// ReservationEvent is the payload of every reservation.* event.
type ReservationEvent struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	Reference     string          `json:"reference"`
	ResourceID    uuid.UUID       `json:"resource_id"`
	SeekerID      uuid.UUID       `json:"seeker_id"`
	HostID        uuid.UUID       `json:"host_id"`
	Status        string          `json:"status"`
	StartAt       time.Time       `json:"start_at"`
	EndAt         time.Time       `json:"end_at"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ActorID       *uuid.UUID      `json:"actor_id,omitempty"`
	AutoCheckout  bool            `json:"auto_checkout,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// RefundEvent is the payload of every refund.* event.
type RefundEvent struct {
	RefundRequestID uuid.UUID       `json:"refund_request_id"`
	ReservationID   uuid.UUID       `json:"reservation_id"`
	Status          string          `json:"status"`
	Reason          string          `json:"reason"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ProviderRef     string          `json:"provider_ref,omitempty"`
	Failure         string          `json:"failure,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// NotificationEvent asks the notification service to deliver a message to one user.
type NotificationEvent struct {
	UserID     uuid.UUID              `json:"user_id"`
	EventType  string                 `json:"event_type"`
	Context    map[string]interface{} `json:"context"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// PaymentCapturedEvent is published by the payments service once money is captured.
type PaymentCapturedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	ProviderRef   string          `json:"provider_ref"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CapturedAt    time.Time       `json:"captured_at"`
}

// OpenWindowPayload is one open interval of a listing's weekly schedule.
type OpenWindowPayload struct {
	Open  string `json:"open" validate:"required,hhmm"`
	Close string `json:"close" validate:"required,hhmm"`
}

// ListingUpsertedEvent carries the listing attributes the engine projects.
type ListingUpsertedEvent struct {
	ListingID          uuid.UUID                      `json:"listing_id" validate:"required"`
	HostID             uuid.UUID                      `json:"host_id" validate:"required"`
	Name               string                         `json:"name"`
	HourlyRate         decimal.Decimal                `json:"hourly_rate"`
	Currency           string                         `json:"currency" validate:"omitempty,len=3"`
	CancellationPolicy string                         `json:"cancellation_policy" validate:"omitempty,oneof=flexible moderate strict"`
	Timezone           string                         `json:"timezone"`
	Schedule           map[string][]OpenWindowPayload `json:"schedule" validate:"omitempty,dive,dive"`
	OccurredAt         time.Time                      `json:"occurred_at"`
}

// ListingDeactivatedEvent removes a listing from admission.
type ListingDeactivatedEvent struct {
	ListingID  uuid.UUID `json:"listing_id" validate:"required"`
	OccurredAt time.Time `json:"occurred_at"`
}
