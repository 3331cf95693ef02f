package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/application"
	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// ReservationService is the reservation surface the handlers drive.
type ReservationService interface {
	CreateReservation(ctx context.Context, seekerID uuid.UUID, req application.CreateReservationRequest) (*application.ReservationDTO, error)
	GetReservation(ctx context.Context, id uuid.UUID, actor application.Actor) (*application.ReservationDTO, error)
	ListForActor(ctx context.Context, actor application.Actor, status *reservation.Status, page, limit int) (*domain.PaginatedResult[application.ReservationDTO], error)
	Confirm(ctx context.Context, id uuid.UUID, actor application.Actor, now time.Time) (*application.ReservationDTO, error)
	Reject(ctx context.Context, id uuid.UUID, actor application.Actor, reason string, now time.Time) (*application.CancellationDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, actor application.Actor, reason string, now time.Time) (*application.CancellationDTO, error)
	CheckIn(ctx context.Context, id uuid.UUID, actor application.Actor, now time.Time) (*application.ReservationDTO, error)
	CheckOut(ctx context.Context, id uuid.UUID, actor application.Actor, now time.Time) (*application.ReservationDTO, error)
	ListReservations(ctx context.Context, filter reservation.ListFilter, page, limit int) (*domain.PaginatedResult[application.ReservationDTO], error)
	GetReservationStats(ctx context.Context) (*application.ReservationStatsDTO, error)
}

// RefundService is the refund surface the handlers drive.
type RefundService interface {
	Policies() []application.PolicyDTO
	QuoteRefund(ctx context.Context, reservationID uuid.UUID, actor application.Actor) (*application.RefundQuoteDTO, error)
	RequestRefund(ctx context.Context, reservationID uuid.UUID, actor application.Actor, reason refund.Reason, notes string) (*application.RefundRequestDTO, error)
	ApproveRefund(ctx context.Context, requestID uuid.UUID, approver application.Actor, adjusted *decimal.Decimal) (*application.RefundRequestDTO, error)
	RejectRefund(ctx context.Context, requestID uuid.UUID, approver application.Actor, reason string) (*application.RefundRequestDTO, error)
	RetryRefund(ctx context.Context, requestID uuid.UUID, approver application.Actor) (*application.RefundRequestDTO, error)
	GetRefundRequest(ctx context.Context, requestID uuid.UUID) (*application.RefundRequestDTO, error)
	ListRefundRequests(ctx context.Context, status *refund.Status, page, limit int) (*domain.PaginatedResult[application.RefundRequestDTO], error)
}

// SweepRunner triggers the lifecycle sweeps on demand.
type SweepRunner interface {
	RunAutoCheckoutSweep(ctx context.Context, now time.Time) (application.SweepResult, error)
	RunNoShowSweep(ctx context.Context, now time.Time) (application.SweepResult, error)
}
