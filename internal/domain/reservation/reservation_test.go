package reservation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/service-reservation/internal/platform/domain"
)

var base = time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC)

func newTestReservation(t *testing.T) *Reservation {
	t.Helper()
	r, err := NewReservation(NewReservationParams{
		SeekerID:   uuid.New(),
		ResourceID: uuid.New(),
		HostID:     uuid.New(),
		Start:      base,
		End:        base.Add(2 * time.Hour),
		HourlyRate: decimal.NewFromInt(10),
		Quote:      Quote{Total: decimal.NewFromInt(20), PlatformFee: decimal.NewFromInt(2)},
		Now:        base.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

// reservationIn drives a fresh reservation into status s through legal transitions.
func reservationIn(t *testing.T, s Status) *Reservation {
	t.Helper()
	r := newTestReservation(t)
	now := base.Add(-time.Hour)
	switch s {
	case StatusPending:
	case StatusConfirmed:
		require.NoError(t, r.Confirm(now))
	case StatusActive:
		require.NoError(t, r.Confirm(now))
		require.NoError(t, r.CheckIn(base, 15*time.Minute))
	case StatusCompleted:
		require.NoError(t, r.Confirm(now))
		require.NoError(t, r.CheckIn(base, 15*time.Minute))
		require.NoError(t, r.CheckOut(base.Add(time.Hour)))
	case StatusCancelled:
		require.NoError(t, r.Cancel(r.SeekerID(), "", now))
	case StatusNoShow:
		require.NoError(t, r.Confirm(now))
		require.NoError(t, r.MarkNoShow(base.Add(time.Hour)))
	}
	require.Equal(t, s, r.Status())
	return r
}

func apply(r *Reservation, target Status) error {
	now := base
	switch target {
	case StatusConfirmed:
		return r.Confirm(now)
	case StatusActive:
		return r.CheckIn(now, 15*time.Minute)
	case StatusCompleted:
		return r.CheckOut(now)
	case StatusCancelled:
		return r.Cancel(r.SeekerID(), "", now)
	case StatusNoShow:
		return r.MarkNoShow(now)
	}
	return nil
}

func TestStateMachineClosure(t *testing.T) {
	targets := []Status{StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled, StatusNoShow}

	for _, from := range AllStatuses {
		for _, to := range targets {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				r := reservationIn(t, from)
				err := apply(r, to)

				if from.CanTransitionTo(to) {
					require.NoError(t, err)
					assert.Equal(t, to, r.Status())
					return
				}
				require.Error(t, err)
				assert.True(t, domain.IsKind(err, domain.KindInvalidState))
				assert.Equal(t, from, r.Status(), "illegal transition must not mutate status")
			})
		}
	}
}

func TestCompletedToActiveAlwaysFails(t *testing.T) {
	r := reservationIn(t, StatusCompleted)

	err := r.CheckIn(base, 15*time.Minute)

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeIllegalTransition))
	assert.Contains(t, err.Error(), "completed")
	assert.Contains(t, err.Error(), "active")
}

func TestCheckInWindow(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		code string
	}{
		{"too early", base.Add(-16 * time.Minute), domain.CodeCheckInTooEarly},
		{"window opens", base.Add(-15 * time.Minute), ""},
		{"at end", base.Add(2 * time.Hour), ""},
		{"after end", base.Add(2*time.Hour + time.Second), domain.CodeCheckInExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := reservationIn(t, StatusConfirmed)
			err := r.CheckIn(tc.now, 15*time.Minute)
			if tc.code == "" {
				require.NoError(t, err)
				require.NotNil(t, r.CheckedInAt())
				assert.Equal(t, tc.now, *r.CheckedInAt())
				return
			}
			assert.True(t, domain.HasCode(err, tc.code), "got %v", err)
			assert.Equal(t, StatusConfirmed, r.Status())
		})
	}
}

func TestAutoCheckOut_UsesCheckInPlusCeiling(t *testing.T) {
	r := reservationIn(t, StatusConfirmed)
	checkIn := base.Add(-10 * time.Minute)
	require.NoError(t, r.CheckIn(checkIn, 15*time.Minute))

	require.NoError(t, r.AutoCheckOut(time.Hour, checkIn.Add(3*time.Hour)))

	assert.Equal(t, StatusCompleted, r.Status())
	assert.True(t, r.AutoCheckout())
	assert.Equal(t, checkIn.Add(time.Hour), *r.CheckedOutAt())
}

func TestCancel_RecordsActor(t *testing.T) {
	r := reservationIn(t, StatusConfirmed)
	host := r.HostID()

	require.NoError(t, r.Cancel(host, "maintenance", base.Add(-3*time.Hour)))

	assert.Equal(t, host, *r.CancelledBy())
	assert.Equal(t, "maintenance", r.CancelReason())
}

func TestNewReservation_Reference(t *testing.T) {
	r := newTestReservation(t)

	assert.Regexp(t, `^PK-[A-Z2-9]{8}$`, r.Reference())
	assert.Equal(t, StatusPending, r.Status())
	assert.Equal(t, domain.CurrencyMYR, r.Currency())
}

func TestOverlaps_HalfOpen(t *testing.T) {
	s, e := base, base.Add(time.Hour)

	assert.True(t, Overlaps(s, e, s.Add(30*time.Minute), e.Add(time.Hour)))
	assert.False(t, Overlaps(s, e, e, e.Add(time.Hour)), "touching ranges do not overlap")
	assert.False(t, Overlaps(s, e, s.Add(-time.Hour), s))
	assert.True(t, Overlaps(s, e, s.Add(-time.Hour), e.Add(time.Hour)))
}

func TestStandardPricingStrategy(t *testing.T) {
	p := NewStandardPricingStrategy(decimal.NewFromInt(10))

	q, err := p.Quote(PricingParams{HourlyRate: decimal.NewFromInt(10), Start: base, End: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, q.Total.Equal(decimal.NewFromInt(20)), q.Total.String())
	assert.True(t, q.PlatformFee.Equal(decimal.NewFromInt(2)), q.PlatformFee.String())

	q, err = p.Quote(PricingParams{HourlyRate: decimal.RequireFromString("7.50"), Start: base, End: base.Add(50 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "6.25", q.Total.StringFixed(2))
	assert.Equal(t, "0.63", q.PlatformFee.StringFixed(2))

	_, err = p.Quote(PricingParams{HourlyRate: decimal.NewFromInt(10), Start: base, End: base})
	assert.Error(t, err)
}
