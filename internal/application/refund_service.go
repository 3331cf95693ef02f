package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/clock"
	"github.com/parkwise/service-reservation/internal/domain/payment"
	"github.com/parkwise/service-reservation/internal/domain/refund"
	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// RefundService runs the refund approval workflow.
type RefundService struct {
	requests     refund.RequestRepository
	reservations reservation.ReservationRepository
	resources    resource.ResourceRepository
	payments     payment.PaymentRepository
	collaborator PaymentsCollaborator
	tx           Transactor
	clock        clock.Clock
	effects      effects
	logger       *zap.Logger
}

// NewRefundService creates a new RefundService.
func NewRefundService(
	requests refund.RequestRepository,
	reservations reservation.ReservationRepository,
	resources resource.ResourceRepository,
	payments payment.PaymentRepository,
	collaborator PaymentsCollaborator,
	tx Transactor,
	clk clock.Clock,
	notifier Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *RefundService {
	return &RefundService{
		requests:     requests,
		reservations: reservations,
		resources:    resources,
		payments:     payments,
		collaborator: collaborator,
		tx:           tx,
		clock:        clk,
		effects:      effects{notifier: notifier, publisher: publisher, logger: logger},
		logger:       logger,
	}
}

// Policies discloses every cancellation policy with its derived description.
func (s *RefundService) Policies() []PolicyDTO {
	all := refund.Policies()
	out := make([]PolicyDTO, len(all))
	for i, p := range all {
		out[i] = PolicyDTO{Policy: p, Description: p.Describe()}
	}
	return out
}

// QuoteRefund reports what the seeker would get back for cancelling right now.
func (s *RefundService) QuoteRefund(ctx context.Context, reservationID uuid.UUID, actor Actor) (*RefundQuoteDTO, error) {
	r, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !canView(r, actor) {
		return nil, domain.NewForbiddenError("reservation does not belong to this user")
	}

	policy, err := s.policyFor(ctx, r)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	seekerRefund := decimal.Zero
	switch r.Status() {
	case reservation.StatusPending:
		seekerRefund = r.Total()
	case reservation.StatusConfirmed:
		seekerRefund = policy.ComputeRefund(r.Total(), r.StartAt(), now)
	}
	hostRefund := decimal.Zero
	if r.Status() == reservation.StatusPending || r.Status() == reservation.StatusConfirmed {
		hostRefund = r.Total()
	}

	return &RefundQuoteDTO{
		ReservationID: r.ID(),
		Policy:        policy.Name,
		Description:   policy.Describe(),
		Total:         r.Total(),
		SeekerRefund:  seekerRefund,
		HostRefund:    hostRefund,
		Currency:      r.Currency(),
		QuotedAt:      now,
	}, nil
}

// RequestRefund lets the seeker ask for money back on a finished reservation.
// A seeker cancellation requests what the policy granted at cancellation time;
// anything else requests the full total and relies on the approver to adjust it.
func (s *RefundService) RequestRefund(ctx context.Context, reservationID uuid.UUID, actor Actor, reason refund.Reason, notes string) (*RefundRequestDTO, error) {
	r, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if actor.ID != r.SeekerID() {
		return nil, domain.NewForbiddenError("only the seeker can request a refund")
	}
	if !r.Status().IsTerminal() {
		return nil, domain.NewStateErrorCode(domain.CodeIllegalTransition,
			fmt.Sprintf("refunds can only be requested once a reservation has ended, current status is %s", r.Status()))
	}
	if reason == "" {
		reason = defaultReason(r)
	}
	if !reason.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid refund reason: %s", reason))
	}

	amount := r.Total()
	if r.Status() == reservation.StatusCancelled && r.CancelledBy() != nil && *r.CancelledBy() == r.SeekerID() && r.CancelledAt() != nil {
		policy, err := s.policyFor(ctx, r)
		if err != nil {
			return nil, err
		}
		amount = policy.ComputeRefund(r.Total(), r.StartAt(), *r.CancelledAt())
	}

	req, err := s.enqueue(ctx, r, reason, amount, notes, actor.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.announceRequested(ctx, req, r)

	result := toRefundRequestDTO(req)
	return &result, nil
}

// ApproveRefund approves a pending request, optionally with a lower amount, and
// executes it immediately. A failed execution leaves the request approved and
// returns a payment_execution_failed RefundError.
func (s *RefundService) ApproveRefund(ctx context.Context, requestID uuid.UUID, approver Actor, adjusted *decimal.Decimal) (*RefundRequestDTO, error) {
	if !approver.IsAdmin() {
		return nil, domain.NewForbiddenError("only approvers can decide refunds")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := req.Approve(approver.ID, adjusted, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	r := s.reservationFor(ctx, req)
	s.effects.refundChanged(ctx, schema.RefundApproved, req, partiesOf(r)...)

	execErr := s.execute(ctx, req, r)
	result := toRefundRequestDTO(req)
	return &result, execErr
}

// RejectRefund closes a pending request. The reason is mandatory.
func (s *RefundService) RejectRefund(ctx context.Context, requestID uuid.UUID, approver Actor, reason string) (*RefundRequestDTO, error) {
	if !approver.IsAdmin() {
		return nil, domain.NewForbiddenError("only approvers can decide refunds")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := req.Reject(approver.ID, reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	r := s.reservationFor(ctx, req)
	s.effects.refundChanged(ctx, schema.RefundRejected, req, partiesOf(r)...)

	result := toRefundRequestDTO(req)
	return &result, nil
}

// RetryRefund re-executes an approved request whose earlier execution failed.
func (s *RefundService) RetryRefund(ctx context.Context, requestID uuid.UUID, approver Actor) (*RefundRequestDTO, error) {
	if !approver.IsAdmin() {
		return nil, domain.NewForbiddenError("only approvers can retry refunds")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status() != refund.StatusApproved {
		return nil, domain.NewInvalidStateError(string(req.Status()), string(refund.StatusProcessed))
	}

	// Claim the request so two operators cannot move the money twice.
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	execErr := s.execute(ctx, req, s.reservationFor(ctx, req))
	result := toRefundRequestDTO(req)
	return &result, execErr
}

// GetRefundRequest returns one refund request (admin).
func (s *RefundService) GetRefundRequest(ctx context.Context, requestID uuid.UUID) (*RefundRequestDTO, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	result := toRefundRequestDTO(req)
	return &result, nil
}

// ListRefundRequests returns the refund queue, oldest first (admin).
func (s *RefundService) ListRefundRequests(ctx context.Context, status *refund.Status, page, limit int) (*domain.PaginatedResult[RefundRequestDTO], error) {
	items, total, err := s.requests.ListByStatus(ctx, status, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]RefundRequestDTO, len(items))
	for i, req := range items {
		dtos[i] = toRefundRequestDTO(req)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Workflow internals shared with ReservationService ---

// cancellationEntitlement is what a cancellation from priorStatus owes the seeker.
func (s *RefundService) cancellationEntitlement(ctx context.Context, r *reservation.Reservation, priorStatus reservation.Status, reason refund.Reason, now time.Time) (decimal.Decimal, error) {
	if reason.IsHostInitiated() || priorStatus == reservation.StatusPending {
		return r.Total(), nil
	}
	policy, err := s.policyFor(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	return policy.ComputeRefund(r.Total(), r.StartAt(), now), nil
}

// enqueue opens a refund request against the reservation's captured payment,
// capped at what the payment has not already committed to other requests.
func (s *RefundService) enqueue(
	ctx context.Context,
	r *reservation.Reservation,
	reason refund.Reason,
	amount decimal.Decimal,
	notes string,
	requestedBy uuid.UUID,
	now time.Time,
) (*refund.Request, error) {
	p, err := s.payments.FindSucceededByReservation(ctx, r.ID())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NewRefundError(domain.CodeNoPayment, "no captured payment exists for this reservation", nil)
	}
	if !amount.IsPositive() {
		return nil, domain.NewRefundError(domain.CodeNoRefundEntitlement, "nothing is owed under the cancellation policy", nil)
	}

	open, err := s.requests.FindOpenByReservation(ctx, r.ID())
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, domain.NewRefundError(domain.CodeDuplicateRefund,
			"an open refund request already exists for this reservation", nil)
	}

	committed, err := s.requests.SumCommittedByPayment(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	remaining := p.Amount().Sub(committed)
	if !remaining.IsPositive() {
		return nil, domain.NewRefundError(domain.CodeRefundExhausted,
			fmt.Sprintf("payment %s has already been refunded in full", p.ProviderRef()), nil)
	}
	if amount.GreaterThan(remaining) {
		amount = remaining
	}

	req, err := refund.NewRequest(refund.NewRequestParams{
		ReservationID: r.ID(),
		PaymentID:     p.ID(),
		PaymentRef:    p.ProviderRef(),
		Amount:        amount,
		Currency:      p.Currency(),
		Reason:        reason,
		Notes:         notes,
		RequestedBy:   requestedBy,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// nothingToRefund reports whether enqueue declined because no money is owed or left.
func nothingToRefund(err error) bool {
	return domain.HasCode(err, domain.CodeNoPayment) ||
		domain.HasCode(err, domain.CodeNoRefundEntitlement) ||
		domain.HasCode(err, domain.CodeRefundExhausted)
}

// announceRequested notifies the seeker. The notifier fan-out also alerts the ops mailbox.
func (s *RefundService) announceRequested(ctx context.Context, req *refund.Request, r *reservation.Reservation) {
	s.effects.refundChanged(ctx, schema.RefundRequested, req, r.SeekerID())
}

// executeAutomatically approves and executes a host-initiated refund. Failures
// are logged and leave the request for an operator to retry.
func (s *RefundService) executeAutomatically(ctx context.Context, req *refund.Request, r *reservation.Reservation) *refund.Request {
	if err := req.ApproveAutomatically(s.clock.Now()); err != nil {
		s.logger.Error("failed to auto-approve refund", zap.String("refund_request_id", req.ID().String()), zap.Error(err))
		return req
	}
	if err := s.update(ctx, req); err != nil {
		s.logger.Error("failed to persist auto-approved refund", zap.String("refund_request_id", req.ID().String()), zap.Error(err))
		return req
	}
	s.effects.refundChanged(ctx, schema.RefundApproved, req, partiesOf(r)...)

	if err := s.execute(ctx, req, r); err != nil {
		s.logger.Warn("auto-approved refund was not executed",
			zap.String("refund_request_id", req.ID().String()),
			zap.Error(err),
		)
	}
	return req
}

// execute moves the money for an approved request and records the outcome.
func (s *RefundService) execute(ctx context.Context, req *refund.Request, r *reservation.Reservation) error {
	if s.collaborator == nil {
		return domain.NewRefundError(domain.CodePaymentFailed, "no payments collaborator configured", nil)
	}

	providerRef, execErr := s.collaborator.ExecuteRefund(ctx, req.PaymentRef(), req.PayableAmount(), req.Currency(), req.ID().String())
	now := s.clock.Now()

	if execErr != nil {
		s.logger.Error("refund execution failed",
			zap.String("refund_request_id", req.ID().String()),
			zap.String("payment_ref", req.PaymentRef()),
			zap.Error(execErr),
		)
		if err := req.RecordFailure(execErr.Error(), now); err != nil {
			return err
		}
		if err := s.update(ctx, req); err != nil {
			s.logger.Error("failed to record refund failure", zap.String("refund_request_id", req.ID().String()), zap.Error(err))
		}
		s.effects.refundChanged(ctx, schema.RefundExecutionFailed, req)
		return domain.NewRefundError(domain.CodePaymentFailed, "the payment provider could not execute the refund", execErr)
	}

	if err := req.MarkProcessed(providerRef, now); err != nil {
		return err
	}
	if err := s.update(ctx, req); err != nil {
		s.logger.Error("refund executed but not recorded",
			zap.String("refund_request_id", req.ID().String()),
			zap.String("provider_ref", providerRef),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("refund processed",
		zap.String("refund_request_id", req.ID().String()),
		zap.String("amount", req.PayableAmount().StringFixed(2)),
	)
	s.effects.refundChanged(ctx, schema.RefundProcessed, req, partiesOf(r)...)
	return nil
}

func (s *RefundService) policyFor(ctx context.Context, r *reservation.Reservation) (refund.Policy, error) {
	res, err := s.resources.FindByID(ctx, r.ResourceID())
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return refund.LookupPolicy(""), nil
		}
		return refund.Policy{}, err
	}
	return refund.LookupPolicy(res.PolicyName()), nil
}

// reservationFor loads the request's reservation for notifications; nil when it cannot be read.
func (s *RefundService) reservationFor(ctx context.Context, req *refund.Request) *reservation.Reservation {
	r, err := s.reservations.FindByID(ctx, req.ReservationID())
	if err != nil {
		s.logger.Warn("failed to load reservation for refund notification",
			zap.String("reservation_id", req.ReservationID().String()),
			zap.Error(err),
		)
		return nil
	}
	return r
}

func (s *RefundService) update(ctx context.Context, req *refund.Request) error {
	req.IncrementVersion()
	if err := s.requests.Update(ctx, req); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("failed to update refund request: %w", err)
	}
	return nil
}

func partiesOf(r *reservation.Reservation) []uuid.UUID {
	if r == nil {
		return nil
	}
	return []uuid.UUID{r.SeekerID(), r.HostID()}
}

func defaultReason(r *reservation.Reservation) refund.Reason {
	switch {
	case r.Status() == reservation.StatusNoShow:
		return refund.ReasonNoShow
	case r.Status() == reservation.StatusCancelled && r.CancelledBy() != nil && *r.CancelledBy() == r.HostID():
		return refund.ReasonHostCancelled
	case r.Status() == reservation.StatusCancelled:
		return refund.ReasonSeekerCancelled
	default:
		return refund.ReasonOther
	}
}
