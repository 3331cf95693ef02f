package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// ResourceModel is the GORM model for the resources table.
type ResourceModel struct {
	ID         uuid.UUID                                   `gorm:"type:uuid;primaryKey"`
	HostID     uuid.UUID                                   `gorm:"type:uuid;index;not null"`
	Name       string                                      `gorm:"size:200"`
	HourlyRate decimal.Decimal                             `gorm:"type:numeric(12,2);not null"`
	Currency   string                                      `gorm:"not null;size:3;default:'MYR'"`
	PolicyName string                                      `gorm:"size:30"`
	Timezone   string                                      `gorm:"not null;size:64;default:'UTC'"`
	Schedule   datatypes.JSONType[resource.WeeklySchedule] `gorm:"type:jsonb"`
	Active     bool                                        `gorm:"not null;default:true"`
	Version    int64                                       `gorm:"not null;default:1"`
	CreatedAt  time.Time                                   `gorm:"not null"`
	UpdatedAt  time.Time                                   `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ResourceModel) TableName() string {
	return "resources"
}

// GormResourceRepository is the GORM-based implementation of ResourceRepository.
type GormResourceRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormResourceRepository creates a new GormResourceRepository. lockTimeout bounds
// how long FindForUpdate waits for the row lock.
func NewGormResourceRepository(db *gorm.DB, lockTimeout time.Duration) *GormResourceRepository {
	return &GormResourceRepository{db: db, lockTimeout: lockTimeout}
}

// FindByID retrieves a resource by its unique identifier.
func (r *GormResourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	var model ResourceModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Resource", id.String())
		}
		return nil, fmt.Errorf("failed to find resource by ID: %w", err)
	}
	return toDomainResource(&model), nil
}

// FindForUpdate locks the resource row for the surrounding transaction.
// Waiting longer than the lock timeout fails with a LockTimeoutError.
func (r *GormResourceRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	db := conn(ctx, r.db)
	if r.lockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	var model ResourceModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Resource", id.String())
		}
		if pgCode(err) == pgLockNotAvailable {
			return nil, domain.NewLockTimeoutError(id.String(), err)
		}
		return nil, fmt.Errorf("failed to lock resource: %w", err)
	}
	return toDomainResource(&model), nil
}

// Upsert inserts the resource or replaces every projected attribute.
func (r *GormResourceRepository) Upsert(ctx context.Context, res *resource.Resource) error {
	model := toResourceModel(res)
	if err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"host_id", "name", "hourly_rate", "currency", "policy_name",
			"timezone", "schedule", "active", "version", "updated_at",
		}),
	}).Create(model).Error; err != nil {
		return fmt.Errorf("failed to upsert resource: %w", err)
	}
	return nil
}

func toResourceModel(r *resource.Resource) *ResourceModel {
	return &ResourceModel{
		ID:         r.ID(),
		HostID:     r.HostID(),
		Name:       r.Name(),
		HourlyRate: r.HourlyRate(),
		Currency:   r.Currency(),
		PolicyName: r.PolicyName(),
		Timezone:   r.Timezone(),
		Schedule:   datatypes.NewJSONType(r.Schedule()),
		Active:     r.IsActive(),
		Version:    r.Version(),
		CreatedAt:  r.CreatedAt(),
		UpdatedAt:  r.UpdatedAt(),
	}
}

func toDomainResource(m *ResourceModel) *resource.Resource {
	return resource.ReconstructResource(
		m.ID, m.HostID, m.Name, m.HourlyRate,
		m.Currency, m.PolicyName, m.Timezone,
		m.Schedule.Data(), m.Active, m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}
