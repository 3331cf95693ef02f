package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository persists the payment projection.
type PaymentRepository interface {
	// FindSucceededByReservation returns the captured payment for a reservation, or nil if there is none.
	FindSucceededByReservation(ctx context.Context, reservationID uuid.UUID) (*Payment, error)

	// Record stores a payment. Replaying the same provider reference is a no-op.
	Record(ctx context.Context, p *Payment) error
}
