package application

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/payment"
	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// ProjectionService keeps the local resource and payment projections current
// from upstream events.
type ProjectionService struct {
	resources resource.ResourceRepository
	payments  payment.PaymentRepository
	clock     clock.Clock
	logger    *zap.Logger
}

// NewProjectionService creates a new ProjectionService.
func NewProjectionService(
	resources resource.ResourceRepository,
	payments payment.PaymentRepository,
	clk clock.Clock,
	logger *zap.Logger,
) *ProjectionService {
	return &ProjectionService{
		resources: resources,
		payments:  payments,
		clock:     clk,
		logger:    logger,
	}
}

// ApplyListing inserts or refreshes a resource from a listing.upserted event.
func (s *ProjectionService) ApplyListing(ctx context.Context, evt schema.ListingUpsertedEvent) error {
	schedule := toWeeklySchedule(evt.Schedule)
	now := s.clock.Now()

	existing, err := s.resources.FindByID(ctx, evt.ListingID)
	switch {
	case err == nil:
		if err := existing.Apply(evt.HostID, evt.Name, evt.HourlyRate, evt.Currency, evt.CancellationPolicy, evt.Timezone, schedule, now); err != nil {
			return err
		}
		return s.resources.Upsert(ctx, existing)
	case domain.IsKind(err, domain.KindNotFound):
		res, err := resource.NewResource(evt.ListingID, evt.HostID, evt.Name, evt.HourlyRate,
			evt.Currency, evt.CancellationPolicy, evt.Timezone, schedule, now)
		if err != nil {
			return err
		}
		s.logger.Info("resource projected", zap.String("resource_id", res.ID().String()))
		return s.resources.Upsert(ctx, res)
	default:
		return err
	}
}

// DeactivateListing stops a resource from admitting new reservations. Existing
// reservations are untouched. Unknown listings are ignored.
func (s *ProjectionService) DeactivateListing(ctx context.Context, evt schema.ListingDeactivatedEvent) error {
	existing, err := s.resources.FindByID(ctx, evt.ListingID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			s.logger.Debug("deactivation for unknown resource ignored", zap.String("resource_id", evt.ListingID.String()))
			return nil
		}
		return err
	}
	if !existing.IsActive() {
		return nil
	}
	existing.Deactivate(s.clock.Now())
	return s.resources.Upsert(ctx, existing)
}

// RecordPayment stores a captured payment so a later refund can reference it.
func (s *ProjectionService) RecordPayment(ctx context.Context, evt schema.PaymentCapturedEvent) error {
	capturedAt := evt.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.clock.Now()
	}
	p, err := payment.NewSucceededPayment(evt.PaymentID, evt.ReservationID, evt.ProviderRef, evt.Amount, evt.Currency, capturedAt)
	if err != nil {
		return err
	}
	return s.payments.Record(ctx, p)
}

func toWeeklySchedule(in map[string][]schema.OpenWindowPayload) resource.WeeklySchedule {
	if len(in) == 0 {
		return nil
	}
	out := make(resource.WeeklySchedule, len(in))
	for day, windows := range in {
		converted := make([]resource.OpenWindow, len(windows))
		for i, w := range windows {
			converted[i] = resource.OpenWindow{Open: w.Open, Close: w.Close}
		}
		out[strings.ToLower(day)] = converted
	}
	return out
}
