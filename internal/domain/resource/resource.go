package resource

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// Resource is the engine's local projection of a bookable parking space.
// The listing service owns it; this service only reads it during admission.
type Resource struct {
	id         uuid.UUID
	hostID     uuid.UUID
	name       string
	hourlyRate decimal.Decimal
	currency   string
	policyName string
	timezone   string
	schedule   WeeklySchedule
	active     bool
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewResource validates and creates an active Resource.
func NewResource(
	id, hostID uuid.UUID,
	name string,
	hourlyRate decimal.Decimal,
	currency, policyName, timezone string,
	schedule WeeklySchedule,
	now time.Time,
) (*Resource, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("resource ID is required")
	}
	if hostID == uuid.Nil {
		return nil, domain.NewValidationError("host ID is required")
	}
	if err := validateAttributes(hourlyRate, timezone, schedule); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = domain.CurrencyMYR
	}
	if timezone == "" {
		timezone = "UTC"
	}

	return &Resource{
		id:         id,
		hostID:     hostID,
		name:       name,
		hourlyRate: hourlyRate,
		currency:   currency,
		policyName: policyName,
		timezone:   timezone,
		schedule:   schedule,
		active:     true,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructResource rebuilds a Resource from persistence data (no validation).
func ReconstructResource(
	id, hostID uuid.UUID,
	name string,
	hourlyRate decimal.Decimal,
	currency, policyName, timezone string,
	schedule WeeklySchedule,
	active bool,
	version int64,
	createdAt, updatedAt time.Time,
) *Resource {
	return &Resource{
		id:         id,
		hostID:     hostID,
		name:       name,
		hourlyRate: hourlyRate,
		currency:   currency,
		policyName: policyName,
		timezone:   timezone,
		schedule:   schedule,
		active:     active,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func validateAttributes(hourlyRate decimal.Decimal, timezone string, schedule WeeklySchedule) error {
	if hourlyRate.IsNegative() {
		return domain.NewValidationError("hourly rate cannot be negative")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return domain.NewValidationError(fmt.Sprintf("unknown timezone: %s", timezone))
		}
	}
	if err := schedule.Validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func (r *Resource) ID() uuid.UUID               { return r.id }
func (r *Resource) HostID() uuid.UUID           { return r.hostID }
func (r *Resource) Name() string                { return r.name }
func (r *Resource) HourlyRate() decimal.Decimal { return r.hourlyRate }
func (r *Resource) Currency() string            { return r.currency }
func (r *Resource) PolicyName() string          { return r.policyName }
func (r *Resource) Timezone() string            { return r.timezone }
func (r *Resource) Schedule() WeeklySchedule    { return r.schedule }
func (r *Resource) IsActive() bool              { return r.active }
func (r *Resource) Version() int64              { return r.version }
func (r *Resource) CreatedAt() time.Time        { return r.createdAt }
func (r *Resource) UpdatedAt() time.Time        { return r.updatedAt }

// Location returns the resource's time zone, falling back to UTC.
func (r *Resource) Location() *time.Location {
	loc, err := time.LoadLocation(r.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RequiresApproval reports whether a reservation for [start, end) falls outside
// declared opening hours. Resources without a schedule never require approval.
func (r *Resource) RequiresApproval(start, end time.Time) bool {
	if !r.schedule.IsDeclared() {
		return false
	}
	return !r.schedule.Covers(start, end, r.Location())
}

// Apply overwrites the listing attributes from an upstream change and reactivates the resource.
func (r *Resource) Apply(
	hostID uuid.UUID,
	name string,
	hourlyRate decimal.Decimal,
	currency, policyName, timezone string,
	schedule WeeklySchedule,
	now time.Time,
) error {
	if hostID == uuid.Nil {
		return domain.NewValidationError("host ID is required")
	}
	if err := validateAttributes(hourlyRate, timezone, schedule); err != nil {
		return err
	}
	if currency != "" {
		r.currency = currency
	}
	if timezone != "" {
		r.timezone = timezone
	}
	r.hostID = hostID
	r.name = name
	r.hourlyRate = hourlyRate
	r.policyName = policyName
	r.schedule = schedule
	r.active = true
	r.touch(now)
	return nil
}

// Deactivate stops the resource from admitting new reservations.
func (r *Resource) Deactivate(now time.Time) {
	r.active = false
	r.touch(now)
}

func (r *Resource) touch(now time.Time) {
	r.version++
	r.updatedAt = now
}
