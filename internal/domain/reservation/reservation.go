package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

const referenceChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Reservation is the aggregate root: a seeker's claim on a resource for a time range.
type Reservation struct {
	id         uuid.UUID
	reference  string
	seekerID   uuid.UUID
	resourceID uuid.UUID
	hostID     uuid.UUID
	status     Status

	startAt      time.Time
	endAt        time.Time
	checkedInAt  *time.Time
	checkedOutAt *time.Time
	autoCheckout bool

	hourlyRate  decimal.Decimal
	total       decimal.Decimal
	platformFee decimal.Decimal
	currency    string

	requiresApproval bool
	confirmedAt      *time.Time
	cancelledAt      *time.Time
	cancelledBy      *uuid.UUID
	cancelReason     string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewReservationParams holds the inputs admission has already validated.
type NewReservationParams struct {
	SeekerID         uuid.UUID
	ResourceID       uuid.UUID
	HostID           uuid.UUID
	Start            time.Time
	End              time.Time
	HourlyRate       decimal.Decimal
	Quote            Quote
	Currency         string
	RequiresApproval bool
	Now              time.Time
}

// generateReference creates an external reference in the format "PK-XXXXXXXX".
func generateReference() (string, error) {
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate reservation reference: %w", err)
		}
		result[i] = referenceChars[n.Int64()]
	}
	return "PK-" + string(result), nil
}

// NewReservation creates a Reservation in status pending. Callers auto-confirm
// with Confirm when the range needs no host approval.
func NewReservation(p NewReservationParams) (*Reservation, error) {
	if p.SeekerID == uuid.Nil {
		return nil, domain.NewValidationError("seeker ID is required")
	}
	if p.ResourceID == uuid.Nil {
		return nil, domain.NewValidationError("resource ID is required")
	}
	if !p.Start.Before(p.End) {
		return nil, domain.NewValidationErrorCode(domain.CodeInvalidTimeRange, "start must be before end")
	}

	reference, err := generateReference()
	if err != nil {
		return nil, err
	}

	currency := p.Currency
	if currency == "" {
		currency = domain.CurrencyMYR
	}

	now := p.Now.UTC()
	return &Reservation{
		id:               uuid.New(),
		reference:        reference,
		seekerID:         p.SeekerID,
		resourceID:       p.ResourceID,
		hostID:           p.HostID,
		status:           StatusPending,
		startAt:          p.Start.UTC(),
		endAt:            p.End.UTC(),
		hourlyRate:       p.HourlyRate,
		total:            p.Quote.Total,
		platformFee:      p.Quote.PlatformFee,
		currency:         currency,
		requiresApproval: p.RequiresApproval,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructReservation rebuilds a Reservation from persistence data (no validation).
func ReconstructReservation(
	id uuid.UUID,
	reference string,
	seekerID, resourceID, hostID uuid.UUID,
	status Status,
	startAt, endAt time.Time,
	checkedInAt, checkedOutAt *time.Time,
	autoCheckout bool,
	hourlyRate, total, platformFee decimal.Decimal,
	currency string,
	requiresApproval bool,
	confirmedAt, cancelledAt *time.Time,
	cancelledBy *uuid.UUID,
	cancelReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:               id,
		reference:        reference,
		seekerID:         seekerID,
		resourceID:       resourceID,
		hostID:           hostID,
		status:           status,
		startAt:          startAt,
		endAt:            endAt,
		checkedInAt:      checkedInAt,
		checkedOutAt:     checkedOutAt,
		autoCheckout:     autoCheckout,
		hourlyRate:       hourlyRate,
		total:            total,
		platformFee:      platformFee,
		currency:         currency,
		requiresApproval: requiresApproval,
		confirmedAt:      confirmedAt,
		cancelledAt:      cancelledAt,
		cancelledBy:      cancelledBy,
		cancelReason:     cancelReason,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

func (r *Reservation) ID() uuid.UUID                { return r.id }
func (r *Reservation) Reference() string            { return r.reference }
func (r *Reservation) SeekerID() uuid.UUID          { return r.seekerID }
func (r *Reservation) ResourceID() uuid.UUID        { return r.resourceID }
func (r *Reservation) HostID() uuid.UUID            { return r.hostID }
func (r *Reservation) Status() Status               { return r.status }
func (r *Reservation) StartAt() time.Time           { return r.startAt }
func (r *Reservation) EndAt() time.Time             { return r.endAt }
func (r *Reservation) CheckedInAt() *time.Time      { return r.checkedInAt }
func (r *Reservation) CheckedOutAt() *time.Time     { return r.checkedOutAt }
func (r *Reservation) AutoCheckout() bool           { return r.autoCheckout }
func (r *Reservation) HourlyRate() decimal.Decimal  { return r.hourlyRate }
func (r *Reservation) Total() decimal.Decimal       { return r.total }
func (r *Reservation) PlatformFee() decimal.Decimal { return r.platformFee }
func (r *Reservation) Currency() string             { return r.currency }
func (r *Reservation) RequiresApproval() bool       { return r.requiresApproval }
func (r *Reservation) ConfirmedAt() *time.Time      { return r.confirmedAt }
func (r *Reservation) CancelledAt() *time.Time      { return r.cancelledAt }
func (r *Reservation) CancelledBy() *uuid.UUID      { return r.cancelledBy }
func (r *Reservation) CancelReason() string         { return r.cancelReason }
func (r *Reservation) Version() int64               { return r.version }
func (r *Reservation) CreatedAt() time.Time         { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time         { return r.updatedAt }

// Overlaps reports whether [start, end) intersects this reservation's range.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.startAt, r.endAt, start, end)
}

// Overlaps reports whether half-open ranges [s1, e1) and [s2, e2) intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// --- Behavior ---

func (r *Reservation) transition(target Status, now time.Time) error {
	if !r.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(r.status), string(target))
	}
	r.status = target
	r.updatedAt = now.UTC()
	return nil
}

// Confirm moves a pending reservation to confirmed.
func (r *Reservation) Confirm(now time.Time) error {
	if err := r.transition(StatusConfirmed, now); err != nil {
		return err
	}
	t := now.UTC()
	r.confirmedAt = &t
	return nil
}

// Cancel moves a pending or confirmed reservation to cancelled.
func (r *Reservation) Cancel(by uuid.UUID, reason string, now time.Time) error {
	if err := r.transition(StatusCancelled, now); err != nil {
		return err
	}
	t := now.UTC()
	r.cancelledAt = &t
	r.cancelledBy = &by
	r.cancelReason = reason
	return nil
}

// CheckIn activates a confirmed reservation when now is inside [start-earlyWindow, end].
func (r *Reservation) CheckIn(now time.Time, earlyWindow time.Duration) error {
	if !r.status.CanTransitionTo(StatusActive) {
		return domain.NewInvalidStateError(string(r.status), string(StatusActive))
	}
	if now.Before(r.startAt.Add(-earlyWindow)) {
		return domain.NewStateErrorCode(domain.CodeCheckInTooEarly,
			fmt.Sprintf("check-in opens at %s", r.startAt.Add(-earlyWindow).Format(time.RFC3339)))
	}
	if now.After(r.endAt) {
		return domain.NewStateErrorCode(domain.CodeCheckInExpired, "reservation has already ended")
	}
	if err := r.transition(StatusActive, now); err != nil {
		return err
	}
	t := now.UTC()
	r.checkedInAt = &t
	return nil
}

// CheckOut completes an active reservation at now.
func (r *Reservation) CheckOut(now time.Time) error {
	if err := r.transition(StatusCompleted, now); err != nil {
		return err
	}
	t := now.UTC()
	r.checkedOutAt = &t
	return nil
}

// AutoCheckOut completes an active reservation at exactly check-in + dwellCeiling.
func (r *Reservation) AutoCheckOut(dwellCeiling time.Duration, now time.Time) error {
	if r.checkedInAt == nil {
		return domain.NewStateErrorCode(domain.CodeIllegalTransition, "reservation has no check-in")
	}
	if err := r.transition(StatusCompleted, now); err != nil {
		return err
	}
	t := r.checkedInAt.Add(dwellCeiling)
	r.checkedOutAt = &t
	r.autoCheckout = true
	return nil
}

// MarkNoShow moves a confirmed reservation that was never checked into no_show.
func (r *Reservation) MarkNoShow(now time.Time) error {
	if r.checkedInAt != nil {
		return domain.NewStateErrorCode(domain.CodeIllegalTransition, "reservation was checked in")
	}
	return r.transition(StatusNoShow, now)
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
}
