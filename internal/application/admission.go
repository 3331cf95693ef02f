package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// AdmissionRequest is a proposed reservation.
type AdmissionRequest struct {
	SeekerID   uuid.UUID
	ResourceID uuid.UUID
	Start      time.Time
	End        time.Time
}

// AdmissionController admits or rejects new reservations against current occupancy.
type AdmissionController struct {
	reservations reservation.ReservationRepository
	resources    resource.ResourceRepository
	pricing      reservation.PricingStrategy
	locker       Locker
	tx           Transactor
	clock        clock.Clock
	cfg          EngineConfig
	logger       *zap.Logger
}

// NewAdmissionController creates a new AdmissionController.
func NewAdmissionController(
	reservations reservation.ReservationRepository,
	resources resource.ResourceRepository,
	pricing reservation.PricingStrategy,
	locker Locker,
	tx Transactor,
	clk clock.Clock,
	cfg EngineConfig,
	logger *zap.Logger,
) *AdmissionController {
	return &AdmissionController{
		reservations: reservations,
		resources:    resources,
		pricing:      pricing,
		locker:       locker,
		tx:           tx,
		clock:        clk,
		cfg:          cfg,
		logger:       logger,
	}
}

// Validate runs the stateless checks in order: range, start in future, duration.
func (a *AdmissionController) Validate(start, end, now time.Time) error {
	if !start.Before(end) {
		return domain.NewValidationErrorCode(domain.CodeInvalidTimeRange, "start must be before end")
	}
	if start.Before(now.Add(-a.cfg.AdmissionGrace)) {
		return domain.NewValidationErrorCode(domain.CodeStartInPast, "start must be in the future")
	}
	if end.Sub(start) > a.cfg.MaxDuration {
		return domain.NewValidationErrorCode(domain.CodeDurationTooLong,
			fmt.Sprintf("reservations may last at most %s", a.cfg.MaxDuration))
	}
	return nil
}

// Admit validates req and, under an exclusive lock on the resource, checks for
// overlap and inserts the reservation. Reservations inside the resource's
// opening hours are confirmed immediately; others wait for host approval.
func (a *AdmissionController) Admit(ctx context.Context, req AdmissionRequest) (*reservation.Reservation, error) {
	if req.SeekerID == uuid.Nil {
		return nil, domain.NewValidationError("seeker ID is required")
	}
	if err := a.Validate(req.Start, req.End, a.clock.Now()); err != nil {
		return nil, err
	}

	release, err := a.locker.Acquire(ctx, lockKey(req.ResourceID), a.cfg.LockWait)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn("admission lock wait exceeded",
			zap.String("resource_id", req.ResourceID.String()),
			zap.Error(err),
		)
		return nil, domain.NewLockTimeoutError(req.ResourceID.String(), err)
	}
	defer release()

	var admitted *reservation.Reservation
	err = a.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := a.resources.FindForUpdate(ctx, req.ResourceID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return domain.NewResourceNotFoundError(req.ResourceID.String())
			}
			return err
		}
		if !res.IsActive() {
			return domain.NewResourceNotFoundError(req.ResourceID.String())
		}

		taken, err := a.reservations.ExistsOverlapping(ctx, res.ID(), req.Start, req.End)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewSlotTakenError("this time slot was just taken, choose another time")
		}

		quote, err := a.pricing.Quote(reservation.PricingParams{
			HourlyRate: res.HourlyRate(),
			Start:      req.Start,
			End:        req.End,
		})
		if err != nil {
			return domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
		}

		now := a.clock.Now()
		requiresApproval := res.RequiresApproval(req.Start, req.End)
		r, err := reservation.NewReservation(reservation.NewReservationParams{
			SeekerID:         req.SeekerID,
			ResourceID:       res.ID(),
			HostID:           res.HostID(),
			Start:            req.Start,
			End:              req.End,
			HourlyRate:       res.HourlyRate(),
			Quote:            quote,
			Currency:         res.Currency(),
			RequiresApproval: requiresApproval,
			Now:              now,
		})
		if err != nil {
			return err
		}
		if !requiresApproval {
			if err := r.Confirm(now); err != nil {
				return err
			}
		}

		if err := a.reservations.Save(ctx, r); err != nil {
			return err
		}
		admitted = r
		return nil
	})
	if err != nil {
		var appErr *domain.AppError
		if !errors.As(err, &appErr) {
			return nil, fmt.Errorf("failed to admit reservation: %w", err)
		}
		return nil, err
	}

	a.logger.Info("reservation admitted",
		zap.String("reservation_id", admitted.ID().String()),
		zap.String("resource_id", admitted.ResourceID().String()),
		zap.String("status", string(admitted.Status())),
	)
	return admitted, nil
}

func lockKey(resourceID uuid.UUID) string {
	return "reservation:resource:" + resourceID.String()
}
