package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/events/schema"
)

// effects fans a committed state change out to the notifier and the event bus.
// Failures are logged and never returned: the state change already happened.
type effects struct {
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
}

func (e effects) notify(ctx context.Context, eventType string, payload map[string]interface{}, users ...uuid.UUID) {
	if e.notifier == nil {
		return
	}
	for _, userID := range users {
		if userID == uuid.Nil {
			continue
		}
		if err := e.notifier.Notify(ctx, userID, eventType, payload); err != nil {
			e.logger.Warn("failed to notify user",
				zap.String("user_id", userID.String()),
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}
}

func (e effects) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, eventType, key, data); err != nil {
		e.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// reservationChanged publishes the lifecycle event and notifies the given parties.
func (e effects) reservationChanged(ctx context.Context, eventType string, r *reservation.Reservation, actor *uuid.UUID, users ...uuid.UUID) {
	evt := schema.ReservationEvent{
		ReservationID: r.ID(),
		Reference:     r.Reference(),
		ResourceID:    r.ResourceID(),
		SeekerID:      r.SeekerID(),
		HostID:        r.HostID(),
		Status:        string(r.Status()),
		StartAt:       r.StartAt(),
		EndAt:         r.EndAt(),
		Total:         r.Total(),
		Currency:      r.Currency(),
		ActorID:       actor,
		AutoCheckout:  r.AutoCheckout(),
		OccurredAt:    r.UpdatedAt(),
	}
	e.publishEvent(ctx, eventType, r.ID().String(), evt)

	e.notify(ctx, eventType, map[string]interface{}{
		"reservation_id": r.ID().String(),
		"reference":      r.Reference(),
		"status":         string(r.Status()),
		"start_at":       r.StartAt(),
		"end_at":         r.EndAt(),
	}, users...)
}

// refundChanged publishes the refund event and notifies the given parties.
func (e effects) refundChanged(ctx context.Context, eventType string, req *refund.Request, users ...uuid.UUID) {
	evt := schema.RefundEvent{
		RefundRequestID: req.ID(),
		ReservationID:   req.ReservationID(),
		Status:          string(req.Status()),
		Reason:          string(req.Reason()),
		Amount:          req.PayableAmount(),
		Currency:        req.Currency(),
		ProviderRef:     req.ProviderRef(),
		Failure:         req.LastFailure(),
		OccurredAt:      req.UpdatedAt(),
	}
	e.publishEvent(ctx, eventType, req.ReservationID().String(), evt)

	e.notify(ctx, eventType, map[string]interface{}{
		"refund_request_id": req.ID().String(),
		"reservation_id":    req.ReservationID().String(),
		"status":            string(req.Status()),
		"amount":            req.PayableAmount().StringFixed(2),
		"currency":          req.Currency(),
		"reason":            string(req.Reason()),
	}, users...)
}
