package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

func TestError_MapsKindsToStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationErrorCode(domain.CodeStartInPast, "start is in the past"), http.StatusBadRequest, domain.CodeStartInPast},
		{"forbidden", domain.NewForbiddenError("nope"), http.StatusForbidden, domain.CodeForbidden},
		{"not found", domain.NewNotFoundError("Reservation", "x"), http.StatusNotFound, domain.CodeNotFound},
		{"slot taken", domain.NewSlotTakenError("taken"), http.StatusConflict, domain.CodeSlotTaken},
		{"state", domain.NewInvalidStateError("completed", "active"), http.StatusConflict, domain.CodeIllegalTransition},
		{"refund", domain.NewRefundError(domain.CodePaymentFailed, "gateway down", nil), http.StatusUnprocessableEntity, domain.CodePaymentFailed},
		{"lock timeout", domain.NewLockTimeoutError("r1", nil), http.StatusServiceUnavailable, domain.CodeSlotBusy},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domain.CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestError_LockTimeoutSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, domain.NewLockTimeoutError("r1", nil))

	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestError_HidesInternalMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}
