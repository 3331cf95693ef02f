package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	// Skipped counts rows another writer changed between selection and update.
	Skipped int `json:"skipped"`
}

// sweepRetryBackoff is how long a row whose transition failed sits out of later batches.
const sweepRetryBackoff = 30 * time.Minute

// LifecycleService applies the time-driven transitions: auto-checkout and no-show.
type LifecycleService struct {
	reservations reservation.ReservationRepository
	cfg          EngineConfig
	effects      effects
	logger       *zap.Logger

	mu          sync.Mutex
	failedUntil map[uuid.UUID]time.Time
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	reservations reservation.ReservationRepository,
	notifier Notifier,
	publisher EventPublisher,
	cfg EngineConfig,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		reservations: reservations,
		cfg:          cfg,
		effects:      effects{notifier: notifier, publisher: publisher, logger: logger},
		logger:       logger,
		failedUntil:  make(map[uuid.UUID]time.Time),
	}
}

// RunAutoCheckoutSweep completes active reservations checked in longer than the
// dwell ceiling. The recorded checkout is check-in plus the ceiling, not now.
func (s *LifecycleService) RunAutoCheckoutSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.reservations.FindDueForAutoCheckout(ctx, now.Add(-s.cfg.DwellCeiling), s.backingOff(now), s.cfg.SweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := s.sweep(ctx, "auto_checkout", now, due, func(r *reservation.Reservation) error {
		return r.AutoCheckOut(s.cfg.DwellCeiling, now)
	}, func(r *reservation.Reservation) {
		s.effects.reservationChanged(ctx, schema.ReservationCompleted, r, nil, r.SeekerID(), r.HostID())
	})
	return result, nil
}

// RunNoShowSweep marks confirmed reservations that were never checked into once
// the grace period after start has passed.
func (s *LifecycleService) RunNoShowSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	due, err := s.reservations.FindDueForNoShow(ctx, now.Add(-s.cfg.NoShowGrace), s.backingOff(now), s.cfg.SweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := s.sweep(ctx, "no_show", now, due, func(r *reservation.Reservation) error {
		return r.MarkNoShow(now)
	}, func(r *reservation.Reservation) {
		s.effects.reservationChanged(ctx, schema.ReservationNoShow, r, nil, r.SeekerID(), r.HostID())
	})
	return result, nil
}

// sweep applies transition to each row independently; one failure never stops the batch.
// Failed rows back off so persistent failures cannot starve the rest of the queue.
func (s *LifecycleService) sweep(
	ctx context.Context,
	name string,
	now time.Time,
	due []*reservation.Reservation,
	transition func(*reservation.Reservation) error,
	announce func(*reservation.Reservation),
) SweepResult {
	var result SweepResult
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}

		if err := transition(r); err != nil {
			if domain.IsKind(err, domain.KindInvalidState) {
				result.Skipped++
				continue
			}
			result.Failed++
			s.recordFailure(name, r, err, now)
			continue
		}

		r.IncrementVersion()
		if err := s.reservations.Update(ctx, r); err != nil {
			if domain.IsKind(err, domain.KindConflict) {
				result.Skipped++
				continue
			}
			result.Failed++
			s.recordFailure(name, r, err, now)
			continue
		}

		s.clearFailure(r.ID())
		result.Processed++
		announce(r)
	}

	if result.Processed > 0 || result.Failed > 0 {
		s.logger.Info("sweep finished",
			zap.String("sweep", name),
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result
}

func (s *LifecycleService) recordFailure(name string, r *reservation.Reservation, err error, now time.Time) {
	retryAt := now.Add(sweepRetryBackoff)
	s.mu.Lock()
	s.failedUntil[r.ID()] = retryAt
	s.mu.Unlock()

	s.logger.Error("sweep transition failed",
		zap.String("sweep", name),
		zap.String("reservation_id", r.ID().String()),
		zap.Time("retry_at", retryAt),
		zap.Error(err),
	)
}

func (s *LifecycleService) clearFailure(id uuid.UUID) {
	s.mu.Lock()
	delete(s.failedUntil, id)
	s.mu.Unlock()
}

// backingOff returns the ids still sitting out at now and forgets expired ones.
func (s *LifecycleService) backingOff(now time.Time) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, until := range s.failedUntil {
		if now.Before(until) {
			ids = append(ids, id)
			continue
		}
		delete(s.failedUntil, id)
	}
	return ids
}
