package refund

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// Status is the state of a refund request in the approval workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusProcessed Status = "processed"
)

var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusProcessed},
	StatusRejected:  {},
	StatusProcessed: {},
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request still blocks a new request for the same reservation.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusApproved
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := validTransitions[status]; !ok {
		return "", fmt.Errorf("invalid refund status: %s", s)
	}
	return status, nil
}

// Reason explains why a refund is owed.
type Reason string

const (
	ReasonSeekerCancelled Reason = "seeker_cancelled"
	ReasonHostCancelled   Reason = "host_cancelled"
	ReasonHostRejected    Reason = "host_rejected"
	ReasonNoShow          Reason = "no_show"
	ReasonOther           Reason = "other"
)

// IsValid returns true for known reason codes.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonSeekerCancelled, ReasonHostCancelled, ReasonHostRejected, ReasonNoShow, ReasonOther:
		return true
	}
	return false
}

// IsHostInitiated reports whether the host caused the refund, which makes it unambiguous.
func (r Reason) IsHostInitiated() bool {
	return r == ReasonHostCancelled || r == ReasonHostRejected
}

// Request is the aggregate root for one refund decision.
type Request struct {
	id              uuid.UUID
	reservationID   uuid.UUID
	paymentID       uuid.UUID
	paymentRef      string
	requestedAmount decimal.Decimal
	approvedAmount  *decimal.Decimal
	currency        string
	status          Status
	reason          Reason
	notes           string
	rejectionReason string
	requestedBy     uuid.UUID
	approverID      *uuid.UUID
	autoApproved    bool
	decidedAt       *time.Time
	processedAt     *time.Time
	providerRef     string
	lastFailure     string
	attempts        int
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
}

// NewRequestParams holds the inputs for a new refund request.
type NewRequestParams struct {
	ReservationID uuid.UUID
	PaymentID     uuid.UUID
	PaymentRef    string
	Amount        decimal.Decimal
	Currency      string
	Reason        Reason
	Notes         string
	RequestedBy   uuid.UUID
	Now           time.Time
}

// NewRequest creates a pending refund request.
func NewRequest(p NewRequestParams) (*Request, error) {
	if p.ReservationID == uuid.Nil {
		return nil, domain.NewValidationError("reservation ID is required")
	}
	if p.PaymentRef == "" {
		return nil, domain.NewRefundError(domain.CodeNoPayment, "refund requires a captured payment", nil)
	}
	if !p.Amount.IsPositive() {
		return nil, domain.NewRefundError(domain.CodeNoRefundEntitlement, "nothing to refund", nil)
	}
	if !p.Reason.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid refund reason: %s", p.Reason))
	}

	now := p.Now.UTC()
	return &Request{
		id:              uuid.New(),
		reservationID:   p.ReservationID,
		paymentID:       p.PaymentID,
		paymentRef:      p.PaymentRef,
		requestedAmount: p.Amount,
		currency:        p.Currency,
		status:          StatusPending,
		reason:          p.Reason,
		notes:           p.Notes,
		requestedBy:     p.RequestedBy,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructRequest rebuilds a Request from persistence data (no validation).
func ReconstructRequest(
	id, reservationID, paymentID uuid.UUID,
	paymentRef string,
	requestedAmount decimal.Decimal,
	approvedAmount *decimal.Decimal,
	currency string,
	status Status,
	reason Reason,
	notes, rejectionReason string,
	requestedBy uuid.UUID,
	approverID *uuid.UUID,
	autoApproved bool,
	decidedAt, processedAt *time.Time,
	providerRef, lastFailure string,
	attempts int,
	version int64,
	createdAt, updatedAt time.Time,
) *Request {
	return &Request{
		id:              id,
		reservationID:   reservationID,
		paymentID:       paymentID,
		paymentRef:      paymentRef,
		requestedAmount: requestedAmount,
		approvedAmount:  approvedAmount,
		currency:        currency,
		status:          status,
		reason:          reason,
		notes:           notes,
		rejectionReason: rejectionReason,
		requestedBy:     requestedBy,
		approverID:      approverID,
		autoApproved:    autoApproved,
		decidedAt:       decidedAt,
		processedAt:     processedAt,
		providerRef:     providerRef,
		lastFailure:     lastFailure,
		attempts:        attempts,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (r *Request) ID() uuid.UUID                    { return r.id }
func (r *Request) ReservationID() uuid.UUID         { return r.reservationID }
func (r *Request) PaymentID() uuid.UUID             { return r.paymentID }
func (r *Request) PaymentRef() string               { return r.paymentRef }
func (r *Request) RequestedAmount() decimal.Decimal { return r.requestedAmount }
func (r *Request) ApprovedAmount() *decimal.Decimal { return r.approvedAmount }
func (r *Request) Currency() string                 { return r.currency }
func (r *Request) Status() Status                   { return r.status }
func (r *Request) Reason() Reason                   { return r.reason }
func (r *Request) Notes() string                    { return r.notes }
func (r *Request) RejectionReason() string          { return r.rejectionReason }
func (r *Request) RequestedBy() uuid.UUID           { return r.requestedBy }
func (r *Request) ApproverID() *uuid.UUID           { return r.approverID }
func (r *Request) AutoApproved() bool               { return r.autoApproved }
func (r *Request) DecidedAt() *time.Time            { return r.decidedAt }
func (r *Request) ProcessedAt() *time.Time          { return r.processedAt }
func (r *Request) ProviderRef() string              { return r.providerRef }
func (r *Request) LastFailure() string              { return r.lastFailure }
func (r *Request) Attempts() int                    { return r.attempts }
func (r *Request) Version() int64                   { return r.version }
func (r *Request) CreatedAt() time.Time             { return r.createdAt }
func (r *Request) UpdatedAt() time.Time             { return r.updatedAt }

// PayableAmount is the approved amount if one was set, otherwise the requested amount.
func (r *Request) PayableAmount() decimal.Decimal {
	if r.approvedAmount != nil {
		return *r.approvedAmount
	}
	return r.requestedAmount
}

func (r *Request) transition(target Status, now time.Time) error {
	if !r.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(r.status), string(target))
	}
	r.status = target
	r.updatedAt = now.UTC()
	return nil
}

// Approve accepts a pending request, optionally lowering the amount.
func (r *Request) Approve(approverID uuid.UUID, adjusted *decimal.Decimal, now time.Time) error {
	if !r.status.CanTransitionTo(StatusApproved) {
		return domain.NewInvalidStateError(string(r.status), string(StatusApproved))
	}
	var approved *decimal.Decimal
	if adjusted != nil {
		// Bounds apply to the amount that will actually be paid.
		amount := adjusted.Round(2)
		if !amount.IsPositive() || amount.GreaterThan(r.requestedAmount) {
			return domain.NewRefundError(domain.CodeInvalidRefundAmount,
				fmt.Sprintf("adjusted amount must be at least 0.01 and at most %s", r.requestedAmount.StringFixed(2)), nil)
		}
		approved = &amount
	}
	if err := r.transition(StatusApproved, now); err != nil {
		return err
	}
	t := now.UTC()
	if approved != nil {
		r.approvedAmount = approved
	}
	r.approverID = &approverID
	r.decidedAt = &t
	return nil
}

// ApproveAutomatically approves a host-initiated refund without a human decision.
func (r *Request) ApproveAutomatically(now time.Time) error {
	if !r.reason.IsHostInitiated() {
		return domain.NewRefundError(domain.CodeValidation, "only host-initiated refunds are auto-approved", nil)
	}
	if err := r.transition(StatusApproved, now); err != nil {
		return err
	}
	t := now.UTC()
	r.autoApproved = true
	r.decidedAt = &t
	return nil
}

// Reject closes a pending request with a reason.
func (r *Request) Reject(approverID uuid.UUID, reason string, now time.Time) error {
	if !r.status.CanTransitionTo(StatusRejected) {
		return domain.NewInvalidStateError(string(r.status), string(StatusRejected))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewRefundError(domain.CodeRejectionReasonMissing, "a rejection reason is required", nil)
	}
	if err := r.transition(StatusRejected, now); err != nil {
		return err
	}
	t := now.UTC()
	r.approverID = &approverID
	r.rejectionReason = reason
	r.decidedAt = &t
	return nil
}

// MarkProcessed records that money moved.
func (r *Request) MarkProcessed(providerRef string, now time.Time) error {
	if err := r.transition(StatusProcessed, now); err != nil {
		return err
	}
	t := now.UTC()
	r.processedAt = &t
	r.providerRef = providerRef
	r.lastFailure = ""
	r.attempts++
	return nil
}

// RecordFailure notes a failed execution attempt; the request stays approved.
func (r *Request) RecordFailure(message string, now time.Time) error {
	if r.status != StatusApproved {
		return domain.NewInvalidStateError(string(r.status), string(StatusProcessed))
	}
	r.lastFailure = message
	r.attempts++
	r.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Request) IncrementVersion() {
	r.version++
}
