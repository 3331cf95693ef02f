package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// ReservationModel is the GORM model for the reservations table.
type ReservationModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Reference        string          `gorm:"uniqueIndex;not null;size:20"`
	SeekerID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	ResourceID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	HostID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status           string          `gorm:"not null;size:20;index"`
	StartAt          time.Time       `gorm:"not null"`
	EndAt            time.Time       `gorm:"not null"`
	CheckedInAt      *time.Time      `gorm:""`
	CheckedOutAt     *time.Time      `gorm:""`
	AutoCheckout     bool            `gorm:"not null;default:false"`
	HourlyRate       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PlatformFee      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency         string          `gorm:"not null;size:3;default:'MYR'"`
	RequiresApproval bool            `gorm:"not null;default:false"`
	ConfirmedAt      *time.Time      `gorm:""`
	CancelledAt      *time.Time      `gorm:""`
	CancelledBy      *uuid.UUID      `gorm:"type:uuid"`
	CancelReason     string          `gorm:"size:500"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// GormReservationRepository is the GORM-based implementation of ReservationRepository.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID retrieves a reservation by its unique identifier.
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", id.String())
		}
		return nil, fmt.Errorf("failed to find reservation by ID: %w", err)
	}
	return toDomainReservation(&model), nil
}

// FindByReference retrieves a reservation by its external reference.
func (r *GormReservationRepository) FindByReference(ctx context.Context, reference string) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := conn(ctx, r.db).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", reference)
		}
		return nil, fmt.Errorf("failed to find reservation by reference: %w", err)
	}
	return toDomainReservation(&model), nil
}

// List retrieves reservations matching filter with pagination, newest first.
func (r *GormReservationRepository) List(ctx context.Context, filter reservation.ListFilter, page, limit int) ([]*reservation.Reservation, int64, error) {
	var total int64
	if err := applyFilter(conn(ctx, r.db).Model(&ReservationModel{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	var models []ReservationModel
	offset := (page - 1) * limit
	if err := applyFilter(conn(ctx, r.db), filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	return toDomainReservations(models), total, nil
}

func applyFilter(q *gorm.DB, f reservation.ListFilter) *gorm.DB {
	if f.SeekerID != nil {
		q = q.Where("seeker_id = ?", *f.SeekerID)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	return q
}

// CountByStatus returns reservation counts grouped by status.
func (r *GormReservationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := conn(ctx, r.db).
		Model(&ReservationModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count reservations by status: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, rc := range results {
		counts[rc.Status] = rc.Count
	}
	return counts, nil
}

// ExistsOverlapping reports whether a slot-holding reservation intersects [start, end).
func (r *GormReservationRepository) ExistsOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).
		Raw(`SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE resource_id = ? AND status IN ? AND start_at < ? AND end_at > ?
		)`, resourceID, holdingStatuses(), end, start).
		Scan(&exists).Error; err != nil {
		return false, translate(err, "check overlapping reservations")
	}
	return exists, nil
}

// FindDueForAutoCheckout returns active reservations checked in at or before checkedInBy.
func (r *GormReservationRepository) FindDueForAutoCheckout(ctx context.Context, checkedInBy time.Time, exclude []uuid.UUID, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	if err := excluding(conn(ctx, r.db), exclude).
		Where("status = ? AND checked_in_at IS NOT NULL AND checked_out_at IS NULL AND checked_in_at <= ?",
			string(reservation.StatusActive), checkedInBy).
		Order("checked_in_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find reservations due for auto-checkout: %w", err)
	}
	return toDomainReservations(models), nil
}

// FindDueForNoShow returns confirmed reservations without check-in that started at or before startedBy.
func (r *GormReservationRepository) FindDueForNoShow(ctx context.Context, startedBy time.Time, exclude []uuid.UUID, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	if err := excluding(conn(ctx, r.db), exclude).
		Where("status = ? AND checked_in_at IS NULL AND start_at <= ?",
			string(reservation.StatusConfirmed), startedBy).
		Order("start_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find reservations due for no-show: %w", err)
	}
	return toDomainReservations(models), nil
}

func excluding(q *gorm.DB, ids []uuid.UUID) *gorm.DB {
	if len(ids) == 0 {
		return q
	}
	return q.Where("id NOT IN ?", ids)
}

// Save persists a new reservation. The exclusion constraint surfaces as SlotTakenError.
func (r *GormReservationRepository) Save(ctx context.Context, res *reservation.Reservation) error {
	if err := conn(ctx, r.db).Create(toReservationModel(res)).Error; err != nil {
		return translate(err, "save reservation")
	}
	return nil
}

// Update persists changes to an existing reservation with optimistic locking.
func (r *GormReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	// Only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := res.Version() - 1
	result := conn(ctx, r.db).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"checked_in_at":  model.CheckedInAt,
			"checked_out_at": model.CheckedOutAt,
			"auto_checkout":  model.AutoCheckout,
			"confirmed_at":   model.ConfirmedAt,
			"cancelled_at":   model.CancelledAt,
			"cancelled_by":   model.CancelledBy,
			"cancel_reason":  model.CancelReason,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return translate(result.Error, "update reservation")
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}
	return nil
}

func holdingStatuses() []string {
	out := make([]string, len(reservation.HoldingStatuses))
	for i, s := range reservation.HoldingStatuses {
		out[i] = string(s)
	}
	return out
}

func toReservationModel(r *reservation.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:               r.ID(),
		Reference:        r.Reference(),
		SeekerID:         r.SeekerID(),
		ResourceID:       r.ResourceID(),
		HostID:           r.HostID(),
		Status:           string(r.Status()),
		StartAt:          r.StartAt(),
		EndAt:            r.EndAt(),
		CheckedInAt:      r.CheckedInAt(),
		CheckedOutAt:     r.CheckedOutAt(),
		AutoCheckout:     r.AutoCheckout(),
		HourlyRate:       r.HourlyRate(),
		Total:            r.Total(),
		PlatformFee:      r.PlatformFee(),
		Currency:         r.Currency(),
		RequiresApproval: r.RequiresApproval(),
		ConfirmedAt:      r.ConfirmedAt(),
		CancelledAt:      r.CancelledAt(),
		CancelledBy:      r.CancelledBy(),
		CancelReason:     r.CancelReason(),
		Version:          r.Version(),
		CreatedAt:        r.CreatedAt(),
		UpdatedAt:        r.UpdatedAt(),
	}
}

func toDomainReservation(m *ReservationModel) *reservation.Reservation {
	return reservation.ReconstructReservation(
		m.ID, m.Reference, m.SeekerID, m.ResourceID, m.HostID,
		reservation.Status(m.Status),
		m.StartAt.UTC(), m.EndAt.UTC(),
		utcPtr(m.CheckedInAt), utcPtr(m.CheckedOutAt), m.AutoCheckout,
		m.HourlyRate, m.Total, m.PlatformFee, m.Currency,
		m.RequiresApproval,
		utcPtr(m.ConfirmedAt), utcPtr(m.CancelledAt), m.CancelledBy, m.CancelReason,
		m.Version, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}

func toDomainReservations(models []ReservationModel) []*reservation.Reservation {
	out := make([]*reservation.Reservation, len(models))
	for i := range models {
		out[i] = toDomainReservation(&models[i])
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
