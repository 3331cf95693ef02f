package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

// RetryAfterSeconds is advertised to clients on retryable lock timeouts.
const RetryAfterSeconds = 1

// Envelope is the JSON body shape for every response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody carries the machine code and human message of a failure.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Meta carries pagination totals.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 response for malformed input.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: domain.CodeValidation, Message: message},
	})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
		Error: &ErrorBody{Code: "unauthorized", Message: message},
	})
}

// Error maps err onto an HTTP status and writes it.
func Error(c *gin.Context, err error) {
	appErr := domain.AsAppError(err)
	status := StatusFor(appErr.Kind)

	if appErr.Kind == domain.KindLockTimeout {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	message := appErr.Message
	if appErr.Kind == domain.KindInternal {
		_ = c.Error(err)
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, Envelope{
		Error: &ErrorBody{Code: appErr.Code, Message: message, Retryable: appErr.Retryable},
	})
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindSlotTaken, domain.KindInvalidState, domain.KindConflict:
		return http.StatusConflict
	case domain.KindRefund:
		return http.StatusUnprocessableEntity
	case domain.KindLockTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
