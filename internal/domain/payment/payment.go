package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// Status is the capture state reported by the payments service.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusRefunded  Status = "refunded"
)

// Payment is the local record of a captured payment for a reservation.
type Payment struct {
	id            uuid.UUID
	reservationID uuid.UUID
	providerRef   string
	amount        decimal.Decimal
	currency      string
	status        Status
	capturedAt    time.Time
}

// NewSucceededPayment records a captured payment.
func NewSucceededPayment(id, reservationID uuid.UUID, providerRef string, amount decimal.Decimal, currency string, capturedAt time.Time) (*Payment, error) {
	if reservationID == uuid.Nil {
		return nil, domain.NewValidationError("reservation ID is required")
	}
	if providerRef == "" {
		return nil, domain.NewValidationError("provider payment reference is required")
	}
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("payment amount must be positive")
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	if currency == "" {
		currency = domain.CurrencyMYR
	}
	return &Payment{
		id:            id,
		reservationID: reservationID,
		providerRef:   providerRef,
		amount:        amount,
		currency:      currency,
		status:        StatusSucceeded,
		capturedAt:    capturedAt.UTC(),
	}, nil
}

// ReconstructPayment rebuilds a Payment from persistence data (no validation).
func ReconstructPayment(id, reservationID uuid.UUID, providerRef string, amount decimal.Decimal, currency string, status Status, capturedAt time.Time) *Payment {
	return &Payment{
		id:            id,
		reservationID: reservationID,
		providerRef:   providerRef,
		amount:        amount,
		currency:      currency,
		status:        status,
		capturedAt:    capturedAt,
	}
}

func (p *Payment) ID() uuid.UUID            { return p.id }
func (p *Payment) ReservationID() uuid.UUID { return p.reservationID }
func (p *Payment) ProviderRef() string      { return p.providerRef }
func (p *Payment) Amount() decimal.Decimal  { return p.amount }
func (p *Payment) Currency() string         { return p.currency }
func (p *Payment) Status() Status           { return p.status }
func (p *Payment) CapturedAt() time.Time    { return p.capturedAt }
