package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/auth"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// ReservationService is the application service orchestrating reservation use cases.
type ReservationService struct {
	admission    *AdmissionController
	reservations reservation.ReservationRepository
	refunds      *RefundService
	tx           Transactor
	cfg          EngineConfig
	effects      effects
	logger       *zap.Logger
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	admission *AdmissionController,
	reservations reservation.ReservationRepository,
	refunds *RefundService,
	tx Transactor,
	notifier Notifier,
	publisher EventPublisher,
	cfg EngineConfig,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		admission:    admission,
		reservations: reservations,
		refunds:      refunds,
		tx:           tx,
		cfg:          cfg,
		effects:      effects{notifier: notifier, publisher: publisher, logger: logger},
		logger:       logger,
	}
}

// CreateReservation admits a new reservation for the seeker.
func (s *ReservationService) CreateReservation(ctx context.Context, seekerID uuid.UUID, req CreateReservationRequest) (*ReservationDTO, error) {
	r, err := s.admission.Admit(ctx, AdmissionRequest{
		SeekerID:   seekerID,
		ResourceID: req.ResourceID,
		Start:      req.StartAt.UTC(),
		End:        req.EndAt.UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.effects.reservationChanged(ctx, schema.ReservationCreated, r, &seekerID, r.SeekerID(), r.HostID())
	if r.Status() == reservation.StatusConfirmed {
		s.effects.reservationChanged(ctx, schema.ReservationConfirmed, r, nil, r.SeekerID())
	}

	result := toReservationDTO(r)
	return &result, nil
}

// Confirm lets the host approve a pending reservation.
func (s *ReservationService) Confirm(ctx context.Context, id uuid.UUID, actor Actor, now time.Time) (*ReservationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.HostID() {
		return nil, domain.NewForbiddenError("only the resource's host can confirm this reservation")
	}

	if err := r.Confirm(now); err != nil {
		return nil, err
	}
	if err := s.update(ctx, r); err != nil {
		return nil, err
	}

	s.effects.reservationChanged(ctx, schema.ReservationConfirmed, r, &actor.ID, r.SeekerID())

	result := toReservationDTO(r)
	return &result, nil
}

// Reject lets the host decline a pending reservation. A captured payment is refunded in full.
func (s *ReservationService) Reject(ctx context.Context, id uuid.UUID, actor Actor, reason string, now time.Time) (*CancellationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.HostID() {
		return nil, domain.NewForbiddenError("only the resource's host can reject this reservation")
	}
	if r.Status() != reservation.StatusPending {
		return nil, domain.NewInvalidStateError(string(r.Status()), string(reservation.StatusCancelled))
	}

	return s.cancel(ctx, r, actor, refund.ReasonHostRejected, reason, now, schema.ReservationRejected)
}

// Cancel cancels a pending or confirmed reservation on behalf of its seeker or host.
// The seeker is refunded per the resource's policy; a host cancellation refunds in full.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string, now time.Time) (*CancellationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.ID {
	case r.SeekerID():
		return s.cancel(ctx, r, actor, refund.ReasonSeekerCancelled, reason, now, schema.ReservationCancelled)
	case r.HostID():
		return s.cancel(ctx, r, actor, refund.ReasonHostCancelled, reason, now, schema.ReservationCancelled)
	default:
		return nil, domain.NewForbiddenError("only the seeker or the host can cancel this reservation")
	}
}

func (s *ReservationService) cancel(
	ctx context.Context,
	r *reservation.Reservation,
	actor Actor,
	refundReason refund.Reason,
	note string,
	now time.Time,
	eventType string,
) (*CancellationDTO, error) {
	priorStatus := r.Status()

	var opened *refund.Request
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.Cancel(actor.ID, note, now); err != nil {
			return err
		}
		if err := s.update(ctx, r); err != nil {
			return err
		}

		amount, err := s.refunds.cancellationEntitlement(ctx, r, priorStatus, refundReason, now)
		if err != nil {
			return err
		}
		opened, err = s.refunds.enqueue(ctx, r, refundReason, amount, note, actor.ID, now)
		if nothingToRefund(err) {
			opened, err = nil, nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.effects.reservationChanged(ctx, eventType, r, &actor.ID, r.SeekerID(), r.HostID())

	result := &CancellationDTO{Reservation: toReservationDTO(r)}
	if opened != nil {
		s.refunds.announceRequested(ctx, opened, r)
		if refundReason.IsHostInitiated() {
			opened = s.refunds.executeAutomatically(ctx, opened, r)
		}
		dto := toRefundRequestDTO(opened)
		result.Refund = &dto
	}
	return result, nil
}

// CheckIn starts the seeker's use of the resource.
func (s *ReservationService) CheckIn(ctx context.Context, id uuid.UUID, actor Actor, now time.Time) (*ReservationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.SeekerID() {
		return nil, domain.NewForbiddenError("only the seeker can check in")
	}

	if err := r.CheckIn(now, s.cfg.CheckInEarlyWindow); err != nil {
		return nil, err
	}
	if err := s.update(ctx, r); err != nil {
		return nil, err
	}

	s.effects.reservationChanged(ctx, schema.ReservationCheckedIn, r, &actor.ID, r.HostID())

	result := toReservationDTO(r)
	return &result, nil
}

// CheckOut ends the seeker's use of the resource.
func (s *ReservationService) CheckOut(ctx context.Context, id uuid.UUID, actor Actor, now time.Time) (*ReservationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.SeekerID() {
		return nil, domain.NewForbiddenError("only the seeker can check out")
	}

	if err := r.CheckOut(now); err != nil {
		return nil, err
	}
	if err := s.update(ctx, r); err != nil {
		return nil, err
	}

	s.effects.reservationChanged(ctx, schema.ReservationCompleted, r, &actor.ID, r.SeekerID(), r.HostID())

	result := toReservationDTO(r)
	return &result, nil
}

// GetReservation returns a reservation visible to its seeker, its host or an admin.
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID, actor Actor) (*ReservationDTO, error) {
	r, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(r, actor) {
		return nil, domain.NewForbiddenError("reservation does not belong to this user")
	}
	result := toReservationDTO(r)
	return &result, nil
}

// ListForActor lists the seeker's own reservations, or a host's incoming ones.
func (s *ReservationService) ListForActor(ctx context.Context, actor Actor, status *reservation.Status, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	filter := reservation.ListFilter{Status: status}
	switch actor.Role {
	case auth.RoleHost:
		filter.HostID = &actor.ID
	default:
		filter.SeekerID = &actor.ID
	}
	return s.list(ctx, filter, page, limit)
}

// --- Admin methods ---

// ListReservations returns a filtered page of all reservations (admin).
func (s *ReservationService) ListReservations(ctx context.Context, filter reservation.ListFilter, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	return s.list(ctx, filter, page, limit)
}

// GetReservationStats returns aggregate reservation statistics (admin).
func (s *ReservationService) GetReservationStats(ctx context.Context) (*ReservationStatsDTO, error) {
	counts, err := s.reservations.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &ReservationStatsDTO{TotalReservations: total, ByStatus: counts}, nil
}

// --- Helpers ---

func (s *ReservationService) list(ctx context.Context, filter reservation.ListFilter, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.reservations.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toReservationDTOs(items), total, page, limit)
	return &result, nil
}

func (s *ReservationService) update(ctx context.Context, r *reservation.Reservation) error {
	r.IncrementVersion()
	return s.reservations.Update(ctx, r)
}

func canView(r *reservation.Reservation, actor Actor) bool {
	return actor.IsAdmin() || actor.ID == r.SeekerID() || actor.ID == r.HostID()
}
