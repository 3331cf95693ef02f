package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError so transports can map it to a status code.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindSlotTaken    ErrorKind = "slot_taken"
	KindInvalidState ErrorKind = "invalid_state"
	KindForbidden    ErrorKind = "forbidden"
	KindRefund       ErrorKind = "refund"
	KindLockTimeout  ErrorKind = "lock_timeout"
	KindInternal     ErrorKind = "internal"
)

// Error codes shared across the service. Callers match on Code to render an accurate message.
const (
	CodeValidation             = "validation_failed"
	CodeInvalidTimeRange       = "invalid_time_range"
	CodeStartInPast            = "start_in_past"
	CodeDurationTooLong        = "duration_too_long"
	CodeNotFound               = "not_found"
	CodeResourceNotFound       = "resource_not_found"
	CodeConflict               = "concurrent_modification"
	CodeSlotTaken              = "slot_taken"
	CodeSlotBusy               = "slot_busy"
	CodeIllegalTransition      = "illegal_transition"
	CodeCheckInTooEarly        = "check_in_too_early"
	CodeCheckInExpired         = "check_in_expired"
	CodeForbidden              = "forbidden"
	CodeDuplicateRefund        = "duplicate_refund_request"
	CodeInvalidRefundAmount    = "invalid_refund_amount"
	CodePaymentFailed          = "payment_execution_failed"
	CodeNoPayment              = "payment_not_found"
	CodeNoRefundEntitlement    = "no_refund_entitlement"
	CodeRefundExhausted        = "refund_exhausted"
	CodeRejectionReasonMissing = "rejection_reason_required"
	CodeInternal               = "internal_error"
)

// AppError is the error type returned by domain and application code.
type AppError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError of the same kind and code, so sentinel comparisons work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// NewValidationErrorCode reports malformed input with a specific code.
func NewValidationErrorCode(code, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
	}
}

// NewResourceNotFoundError reports a missing or inactive bookable resource.
func NewResourceNotFoundError(id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeResourceNotFound,
		Message: fmt.Sprintf("resource not found: %s", id),
	}
}

// NewConflictError reports a lost optimistic-locking race.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: CodeConflict, Message: message, Retryable: true}
}

// NewSlotTakenError reports that another reservation already holds an overlapping range.
func NewSlotTakenError(message string) *AppError {
	return &AppError{Kind: KindSlotTaken, Code: CodeSlotTaken, Message: message}
}

// NewLockTimeoutError reports that the resource lock could not be acquired in time.
func NewLockTimeoutError(resourceID string, err error) *AppError {
	return &AppError{
		Kind:      KindLockTimeout,
		Code:      CodeSlotBusy,
		Message:   fmt.Sprintf("resource %s is busy, retry shortly", resourceID),
		Retryable: true,
		Err:       err,
	}
}

// NewInvalidStateError reports an illegal status transition.
func NewInvalidStateError(current, requested string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", current, requested),
	}
}

// NewStateErrorCode reports a transition that is legal in principle but blocked by a guard.
func NewStateErrorCode(code, message string) *AppError {
	return &AppError{Kind: KindInvalidState, Code: code, Message: message}
}

// NewForbiddenError reports an actor without rights for the action.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// NewRefundError reports a refund workflow failure.
func NewRefundError(code, message string, err error) *AppError {
	return &AppError{Kind: KindRefund, Code: code, Message: message, Err: err}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// AsAppError extracts an AppError from err, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error", err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
