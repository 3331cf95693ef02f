package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRefundAPI struct {
	resp      map[string]interface{}
	err       error
	paymentID string
	amount    int
	data      map[string]interface{}
}

func (f *fakeRefundAPI) Refund(paymentID string, amount int, data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.paymentID, f.amount, f.data = paymentID, amount, data
	return f.resp, f.err
}

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int{
		"20":     2000,
		"20.5":   2050,
		"0.01":   1,
		"12.345": 1235,
	}
	for in, want := range cases {
		got, err := toMinorUnits(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := toMinorUnits(decimal.Zero)
	assert.Error(t, err)
}

func TestRazorpayCollaborator_ExecuteRefund(t *testing.T) {
	api := &fakeRefundAPI{resp: map[string]interface{}{"id": "rfnd_123"}}
	c := &RazorpayCollaborator{api: api, logger: zap.NewNop()}

	ref, err := c.ExecuteRefund(context.Background(), "pay_abc", decimal.RequireFromString("20.00"), "MYR", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "rfnd_123", ref)
	assert.Equal(t, "pay_abc", api.paymentID)
	assert.Equal(t, 2000, api.amount)
	assert.Equal(t, "req-1", api.data["receipt"])
}

func TestRazorpayCollaborator_Failures(t *testing.T) {
	ctx := context.Background()

	failing := &RazorpayCollaborator{api: &fakeRefundAPI{err: errors.New("BAD_REQUEST_ERROR")}, logger: zap.NewNop()}
	_, err := failing.ExecuteRefund(ctx, "pay_abc", decimal.NewFromInt(5), "MYR", "req-1")
	assert.ErrorContains(t, err, "BAD_REQUEST_ERROR")

	noID := &RazorpayCollaborator{api: &fakeRefundAPI{resp: map[string]interface{}{}}, logger: zap.NewNop()}
	_, err = noID.ExecuteRefund(ctx, "pay_abc", decimal.NewFromInt(5), "MYR", "req-1")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	api := &fakeRefundAPI{resp: map[string]interface{}{"id": "rfnd_1"}}
	c := &RazorpayCollaborator{api: api, logger: zap.NewNop()}
	_, err = c.ExecuteRefund(cancelled, "pay_abc", decimal.NewFromInt(5), "MYR", "req-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.paymentID)
}
