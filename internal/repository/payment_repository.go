package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parkwise/service-reservation/internal/domain/payment"
)

// PaymentModel is the GORM model for the payments table.
type PaymentModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProviderRef   string          `gorm:"uniqueIndex;not null;size:100"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency      string          `gorm:"not null;size:3;default:'MYR'"`
	Status        string          `gorm:"not null;size:20"`
	CapturedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentModel) TableName() string {
	return "payments"
}

// GormPaymentRepository is the GORM-based implementation of PaymentRepository.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindSucceededByReservation returns the latest captured payment for a reservation, or nil.
func (r *GormPaymentRepository) FindSucceededByReservation(ctx context.Context, reservationID uuid.UUID) (*payment.Payment, error) {
	var model PaymentModel
	err := conn(ctx, r.db).
		Where("reservation_id = ? AND status = ?", reservationID, string(payment.StatusSucceeded)).
		Order("captured_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment for reservation: %w", err)
	}
	return payment.ReconstructPayment(
		model.ID, model.ReservationID, model.ProviderRef, model.Amount,
		model.Currency, payment.Status(model.Status), model.CapturedAt.UTC(),
	), nil
}

// Record stores a payment. A replayed provider reference is ignored.
func (r *GormPaymentRepository) Record(ctx context.Context, p *payment.Payment) error {
	model := &PaymentModel{
		ID:            p.ID(),
		ReservationID: p.ReservationID(),
		ProviderRef:   p.ProviderRef(),
		Amount:        p.Amount(),
		Currency:      p.Currency(),
		Status:        string(p.Status()),
		CapturedAt:    p.CapturedAt(),
	}
	if err := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}
