package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkwise/service-reservation/internal/domain/reservation"
	"github.com/parkwise/service-reservation/internal/domain/resource"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

func admissionAt(h *harness, resourceID uuid.UUID, from, to time.Duration) AdmissionRequest {
	return AdmissionRequest{
		SeekerID:   uuid.New(),
		ResourceID: resourceID,
		Start:      baseTime.Add(from),
		End:        baseTime.Add(to),
	}
}

func TestValidate_ErrorOrder(t *testing.T) {
	h := newHarness()
	now := baseTime

	tests := []struct {
		name       string
		start, end time.Time
		code       string
	}{
		{"end before start also in the past", now.Add(-2 * time.Hour), now.Add(-3 * time.Hour), domain.CodeInvalidTimeRange},
		{"empty range", now.Add(time.Hour), now.Add(time.Hour), domain.CodeInvalidTimeRange},
		{"past start with too long duration", now.Add(-time.Hour), now.Add(8 * 24 * time.Hour), domain.CodeStartInPast},
		{"too long", now.Add(time.Hour), now.Add(time.Hour + 7*24*time.Hour + time.Minute), domain.CodeDurationTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.admission.Validate(tt.start, tt.end, now)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.NoError(t, h.admission.Validate(now.Add(-30*time.Second), now.Add(time.Hour), now), "inside grace")
	assert.NoError(t, h.admission.Validate(now.Add(time.Hour), now.Add(time.Hour+7*24*time.Hour), now), "exactly seven days")
}

func TestAdmit_UnknownOrInactiveResource(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.admission.Admit(ctx, admissionAt(h, uuid.New(), 2*time.Hour, 4*time.Hour))
	assert.True(t, domain.HasCode(err, domain.CodeResourceNotFound))

	id := h.addResource(uuid.New(), 10, "", nil)
	res, _ := h.resources.FindByID(ctx, id)
	res.Deactivate(baseTime)
	require.NoError(t, h.resources.Upsert(ctx, res))

	_, err = h.admission.Admit(ctx, admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	assert.True(t, domain.HasCode(err, domain.CodeResourceNotFound))
}

func TestAdmit_AutoConfirmsWithoutSchedule(t *testing.T) {
	h := newHarness()
	id := h.addResource(uuid.New(), 10, "", nil)

	r, err := h.admission.Admit(context.Background(), admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusConfirmed, r.Status())
	assert.False(t, r.RequiresApproval())
	require.NotNil(t, r.ConfirmedAt())
	assert.Equal(t, baseTime, *r.ConfirmedAt())
	assert.Equal(t, "20.00", r.Total().StringFixed(2))
	assert.Equal(t, "2.00", r.PlatformFee().StringFixed(2))
}

func TestAdmit_OutsideOpeningHoursNeedsApproval(t *testing.T) {
	h := newHarness()
	schedule := resource.WeeklySchedule{"monday": {{Open: "09:00", Close: "17:00"}}}
	id := h.addResource(uuid.New(), 10, "", schedule)
	ctx := context.Background()

	inside, err := h.admission.Admit(ctx, admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, inside.Status())

	outside, err := h.admission.Admit(ctx, admissionAt(h, id, 8*time.Hour, 10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, outside.Status())
	assert.True(t, outside.RequiresApproval())
	assert.Nil(t, outside.ConfirmedAt())
}

func TestAdmit_OverlapRejected(t *testing.T) {
	h := newHarness()
	id := h.addResource(uuid.New(), 10, "", nil)
	ctx := context.Background()

	_, err := h.admission.Admit(ctx, admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	require.NoError(t, err)

	_, err = h.admission.Admit(ctx, admissionAt(h, id, 3*time.Hour, 5*time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindSlotTaken))

	// Touching ranges are half-open and do not overlap.
	_, err = h.admission.Admit(ctx, admissionAt(h, id, 4*time.Hour, 5*time.Hour))
	assert.NoError(t, err)

	// A different resource never contends.
	other := h.addResource(uuid.New(), 10, "", nil)
	_, err = h.admission.Admit(ctx, admissionAt(h, other, 2*time.Hour, 4*time.Hour))
	assert.NoError(t, err)
}

func TestAdmit_PendingHoldBlocks(t *testing.T) {
	h := newHarness()
	schedule := resource.WeeklySchedule{"monday": {{Open: "09:00", Close: "10:00"}}}
	id := h.addResource(uuid.New(), 10, "", schedule)
	ctx := context.Background()

	pending, err := h.admission.Admit(ctx, admissionAt(h, id, 4*time.Hour, 6*time.Hour))
	require.NoError(t, err)
	require.Equal(t, reservation.StatusPending, pending.Status())

	_, err = h.admission.Admit(ctx, admissionAt(h, id, 5*time.Hour, 7*time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindSlotTaken))
}

func TestAdmit_CancelledFreesSlot(t *testing.T) {
	h := newHarness()
	id := h.addResource(uuid.New(), 10, "", nil)
	ctx := context.Background()

	first, err := h.admission.Admit(ctx, admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	require.NoError(t, err)
	require.NoError(t, first.Cancel(first.SeekerID(), "", baseTime))
	first.IncrementVersion()
	require.NoError(t, h.reservations.Update(ctx, first))

	_, err = h.admission.Admit(ctx, admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	assert.NoError(t, err)
}

func TestAdmit_ConcurrentAttemptsExactlyOneWins(t *testing.T) {
	h := newHarness()
	id := h.addResource(uuid.New(), 10, "", nil)
	ctx := context.Background()

	const attempts = 25
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every range overlaps 10:00-11:00.
			from := 2*time.Hour - time.Duration(i)*time.Minute
			_, errs[i] = h.admission.Admit(ctx, admissionAt(h, id, from, from+time.Hour+time.Duration(i)*time.Minute))
		}(i)
	}
	wg.Wait()

	var won, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case domain.IsKind(err, domain.KindSlotTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, taken)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("lock wait timed out")
}

func TestAdmit_LockTimeoutIsRetryable(t *testing.T) {
	h := newHarness()
	id := h.addResource(uuid.New(), 10, "", nil)
	pricing := reservation.NewStandardPricingStrategy(h.cfg.PlatformFeePercent)
	admission := NewAdmissionController(h.reservations, h.resources, pricing, busyLocker{}, noTx{}, h.clock, h.cfg, zap.NewNop())

	_, err := admission.Admit(context.Background(), admissionAt(h, id, 2*time.Hour, 4*time.Hour))
	require.Error(t, err)

	appErr := domain.AsAppError(err)
	assert.Equal(t, domain.KindLockTimeout, appErr.Kind)
	assert.Equal(t, domain.CodeSlotBusy, appErr.Code)
	assert.True(t, appErr.Retryable)
}
