package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// RefundRequestModel is the GORM model for the refund_requests table.
type RefundRequestModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ReservationID   uuid.UUID        `gorm:"type:uuid;index;not null"`
	PaymentID       uuid.UUID        `gorm:"type:uuid;not null"`
	PaymentRef      string           `gorm:"not null;size:100"`
	RequestedAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	ApprovedAmount  *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency        string           `gorm:"not null;size:3;default:'MYR'"`
	Status          string           `gorm:"not null;size:20;index"`
	Reason          string           `gorm:"not null;size:30"`
	Notes           string           `gorm:"size:1000"`
	RejectionReason string           `gorm:"size:500"`
	RequestedBy     uuid.UUID        `gorm:"type:uuid;not null"`
	ApproverID      *uuid.UUID       `gorm:"type:uuid"`
	AutoApproved    bool             `gorm:"not null;default:false"`
	DecidedAt       *time.Time       `gorm:""`
	ProcessedAt     *time.Time       `gorm:""`
	ProviderRef     string           `gorm:"size:100"`
	LastFailure     string           `gorm:"size:1000"`
	Attempts        int              `gorm:"not null;default:0"`
	Version         int64            `gorm:"not null;default:1"`
	CreatedAt       time.Time        `gorm:"not null"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RefundRequestModel) TableName() string {
	return "refund_requests"
}

// GormRefundRequestRepository is the GORM-based implementation of RequestRepository.
type GormRefundRequestRepository struct {
	db *gorm.DB
}

// NewGormRefundRequestRepository creates a new GormRefundRequestRepository.
func NewGormRefundRequestRepository(db *gorm.DB) *GormRefundRequestRepository {
	return &GormRefundRequestRepository{db: db}
}

// FindByID retrieves a refund request by its unique identifier.
func (r *GormRefundRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*refund.Request, error) {
	var model RefundRequestModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("RefundRequest", id.String())
		}
		return nil, fmt.Errorf("failed to find refund request by ID: %w", err)
	}
	return toDomainRefundRequest(&model), nil
}

// FindOpenByReservation returns the pending or approved request for a reservation, or nil.
func (r *GormRefundRequestRepository) FindOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*refund.Request, error) {
	var model RefundRequestModel
	err := conn(ctx, r.db).
		Where("reservation_id = ? AND status IN ?", reservationID,
			[]string{string(refund.StatusPending), string(refund.StatusApproved)}).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open refund request: %w", err)
	}
	return toDomainRefundRequest(&model), nil
}

// SumCommittedByPayment totals the payable amount of every request against a
// payment that has not been rejected.
func (r *GormRefundRequestRepository) SumCommittedByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db).
		Model(&RefundRequestModel{}).
		Select("COALESCE(SUM(COALESCE(approved_amount, requested_amount)), 0)").
		Where("payment_id = ? AND status <> ?", paymentID, string(refund.StatusRejected)).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum refunds for payment: %w", err)
	}
	return total, nil
}

// ListByStatus retrieves refund requests with pagination, oldest first.
func (r *GormRefundRequestRepository) ListByStatus(ctx context.Context, status *refund.Status, page, limit int) ([]*refund.Request, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if status != nil {
			return q.Where("status = ?", string(*status))
		}
		return q
	}

	var total int64
	if err := scope(conn(ctx, r.db).Model(&RefundRequestModel{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count refund requests: %w", err)
	}

	var models []RefundRequestModel
	offset := (page - 1) * limit
	if err := scope(conn(ctx, r.db)).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list refund requests: %w", err)
	}

	out := make([]*refund.Request, len(models))
	for i := range models {
		out[i] = toDomainRefundRequest(&models[i])
	}
	return out, total, nil
}

// Save persists a new refund request. The partial unique index on open requests
// turns a concurrent duplicate into a RefundError.
func (r *GormRefundRequestRepository) Save(ctx context.Context, req *refund.Request) error {
	if err := conn(ctx, r.db).Create(toRefundRequestModel(req)).Error; err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.NewRefundError(domain.CodeDuplicateRefund,
				"an open refund request already exists for this reservation", err)
		}
		return fmt.Errorf("failed to save refund request: %w", err)
	}
	return nil
}

// Update persists changes to an existing refund request with optimistic locking.
func (r *GormRefundRequestRepository) Update(ctx context.Context, req *refund.Request) error {
	model := toRefundRequestModel(req)

	expectedVersion := req.Version() - 1
	result := conn(ctx, r.db).
		Model(&RefundRequestModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"approved_amount":  model.ApprovedAmount,
			"status":           model.Status,
			"rejection_reason": model.RejectionReason,
			"approver_id":      model.ApproverID,
			"auto_approved":    model.AutoApproved,
			"decided_at":       model.DecidedAt,
			"processed_at":     model.ProcessedAt,
			"provider_ref":     model.ProviderRef,
			"last_failure":     model.LastFailure,
			"attempts":         model.Attempts,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update refund request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("refund request was modified by another transaction")
	}
	return nil
}

func toRefundRequestModel(r *refund.Request) *RefundRequestModel {
	return &RefundRequestModel{
		ID:              r.ID(),
		ReservationID:   r.ReservationID(),
		PaymentID:       r.PaymentID(),
		PaymentRef:      r.PaymentRef(),
		RequestedAmount: r.RequestedAmount(),
		ApprovedAmount:  r.ApprovedAmount(),
		Currency:        r.Currency(),
		Status:          string(r.Status()),
		Reason:          string(r.Reason()),
		Notes:           r.Notes(),
		RejectionReason: r.RejectionReason(),
		RequestedBy:     r.RequestedBy(),
		ApproverID:      r.ApproverID(),
		AutoApproved:    r.AutoApproved(),
		DecidedAt:       r.DecidedAt(),
		ProcessedAt:     r.ProcessedAt(),
		ProviderRef:     r.ProviderRef(),
		LastFailure:     r.LastFailure(),
		Attempts:        r.Attempts(),
		Version:         r.Version(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}
}

func toDomainRefundRequest(m *RefundRequestModel) *refund.Request {
	return refund.ReconstructRequest(
		m.ID, m.ReservationID, m.PaymentID,
		m.PaymentRef,
		m.RequestedAmount,
		m.ApprovedAmount,
		m.Currency,
		refund.Status(m.Status),
		refund.Reason(m.Reason),
		m.Notes, m.RejectionReason,
		m.RequestedBy,
		m.ApproverID,
		m.AutoApproved,
		utcPtr(m.DecidedAt), utcPtr(m.ProcessedAt),
		m.ProviderRef, m.LastFailure,
		m.Attempts,
		m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}
