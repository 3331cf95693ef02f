package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
)

// CreateReservationRequest holds the data needed to reserve a resource.
type CreateReservationRequest struct {
	ResourceID uuid.UUID `json:"resource_id" binding:"required"`
	StartAt    time.Time `json:"start_at" binding:"required"`
	EndAt      time.Time `json:"end_at" binding:"required"`
}

// ReservationDTO is the response representation of a reservation.
type ReservationDTO struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	SeekerID         uuid.UUID       `json:"seeker_id"`
	ResourceID       uuid.UUID       `json:"resource_id"`
	HostID           uuid.UUID       `json:"host_id"`
	Status           string          `json:"status"`
	StartAt          time.Time       `json:"start_at"`
	EndAt            time.Time       `json:"end_at"`
	CheckedInAt      *time.Time      `json:"checked_in_at,omitempty"`
	CheckedOutAt     *time.Time      `json:"checked_out_at,omitempty"`
	AutoCheckout     bool            `json:"auto_checkout"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	Total            decimal.Decimal `json:"total"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	Currency         string          `json:"currency"`
	RequiresApproval bool            `json:"requires_approval"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy      *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CancellationDTO is the outcome of a cancel or reject, including any refund request it opened.
type CancellationDTO struct {
	Reservation ReservationDTO    `json:"reservation"`
	Refund      *RefundRequestDTO `json:"refund,omitempty"`
}

// RefundRequestDTO is the response representation of a refund request.
type RefundRequestDTO struct {
	ID              uuid.UUID        `json:"id"`
	ReservationID   uuid.UUID        `json:"reservation_id"`
	PaymentRef      string           `json:"payment_ref"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	Currency        string           `json:"currency"`
	Status          string           `json:"status"`
	Reason          string           `json:"reason"`
	Notes           string           `json:"notes,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	RequestedBy     uuid.UUID        `json:"requested_by"`
	ApproverID      *uuid.UUID       `json:"approver_id,omitempty"`
	AutoApproved    bool             `json:"auto_approved"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
	ProviderRef     string           `json:"provider_ref,omitempty"`
	LastFailure     string           `json:"last_failure,omitempty"`
	Attempts        int              `json:"attempts"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// RefundQuoteDTO tells a party what a cancellation right now would refund.
type RefundQuoteDTO struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	Policy        string          `json:"policy"`
	Description   string          `json:"description"`
	Total         decimal.Decimal `json:"total"`
	SeekerRefund  decimal.Decimal `json:"seeker_refund"`
	HostRefund    decimal.Decimal `json:"host_refund"`
	Currency      string          `json:"currency"`
	QuotedAt      time.Time       `json:"quoted_at"`
}

// PolicyDTO discloses one cancellation policy.
type PolicyDTO struct {
	refund.Policy
	Description string `json:"description"`
}

// ReservationStatsDTO holds reservation counts for the admin dashboard.
type ReservationStatsDTO struct {
	TotalReservations int64            `json:"total_reservations"`
	ByStatus          map[string]int64 `json:"by_status"`
}

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
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

func toRefundRequestDTO(r *refund.Request) RefundRequestDTO {
	return RefundRequestDTO{
		ID:              r.ID(),
		ReservationID:   r.ReservationID(),
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
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}
}

func toReservationDTOs(items []*reservation.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(items))
	for i, r := range items {
		dtos[i] = toReservationDTO(r)
	}
	return dtos
}
