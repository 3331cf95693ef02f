package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/domain"
)

func TestApplyListing_CreatesThenUpdates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	listingID, hostID := uuid.New(), uuid.New()

	evt := schema.ListingUpsertedEvent{
		ListingID:          listingID,
		HostID:             hostID,
		Name:               "Level 2, bay 14",
		HourlyRate:         decimal.NewFromInt(8),
		Currency:           "MYR",
		CancellationPolicy: "strict",
		Timezone:           "Asia/Kuala_Lumpur",
		Schedule: map[string][]schema.OpenWindowPayload{
			"Monday": {{Open: "08:00", Close: "20:00"}},
		},
	}
	require.NoError(t, h.projection.ApplyListing(ctx, evt))

	res, err := h.resources.FindByID(ctx, listingID)
	require.NoError(t, err)
	assert.True(t, res.IsActive())
	assert.Equal(t, "strict", res.PolicyName())
	assert.Len(t, res.Schedule()["monday"], 1)

	evt.HourlyRate = decimal.NewFromInt(12)
	evt.Schedule = nil
	require.NoError(t, h.projection.ApplyListing(ctx, evt))

	res, err = h.resources.FindByID(ctx, listingID)
	require.NoError(t, err)
	assert.Equal(t, "12", res.HourlyRate().String())
	assert.False(t, res.Schedule().IsDeclared())
}

func TestApplyListing_RejectsBadSchedule(t *testing.T) {
	h := newHarness()
	err := h.projection.ApplyListing(context.Background(), schema.ListingUpsertedEvent{
		ListingID:  uuid.New(),
		HostID:     uuid.New(),
		HourlyRate: decimal.NewFromInt(8),
		Schedule: map[string][]schema.OpenWindowPayload{
			"monday": {{Open: "18:00", Close: "08:00"}},
		},
	})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestDeactivateListing_BlocksAdmission(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	resourceID := h.addResource(uuid.New(), 10, "", nil)

	require.NoError(t, h.projection.DeactivateListing(ctx, schema.ListingDeactivatedEvent{ListingID: resourceID}))
	require.NoError(t, h.projection.DeactivateListing(ctx, schema.ListingDeactivatedEvent{ListingID: uuid.New()}))

	_, err := h.reservation.CreateReservation(ctx, uuid.New(), CreateReservationRequest{
		ResourceID: resourceID,
		StartAt:    baseTime.Add(time.Hour),
		EndAt:      baseTime.Add(2 * time.Hour),
	})
	assert.True(t, domain.HasCode(err, domain.CodeResourceNotFound))
}

func TestRecordPayment_IsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	reservationID := uuid.New()
	evt := schema.PaymentCapturedEvent{
		PaymentID:     uuid.New(),
		ReservationID: reservationID,
		ProviderRef:   "pay_123",
		Amount:        decimal.NewFromInt(20),
		Currency:      "MYR",
	}

	require.NoError(t, h.projection.RecordPayment(ctx, evt))
	evt.PaymentID = uuid.New()
	require.NoError(t, h.projection.RecordPayment(ctx, evt))

	p, err := h.payments.FindSucceededByReservation(ctx, reservationID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "pay_123", p.ProviderRef())
	assert.Len(t, h.payments.items, 1)
}
