package refund

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestRepository persists refund requests.
type RequestRepository interface {
	// FindByID retrieves a refund request.
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// FindOpenByReservation returns the pending or approved request for a reservation, or nil.
	FindOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*Request, error)

	// SumCommittedByPayment totals the payable amount of every pending, approved
	// or processed request against a payment.
	SumCommittedByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)

	// ListByStatus retrieves requests, oldest first. A nil status lists all.
	ListByStatus(ctx context.Context, status *Status, page, limit int) ([]*Request, int64, error)

	// Save persists a new request. A second open request for the same
	// reservation fails with a duplicate_refund_request RefundError.
	Save(ctx context.Context, r *Request) error

	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, r *Request) error
}
