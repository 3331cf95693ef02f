package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/parkwise/service-reservation/internal/events/schema"
	"github.com/parkwise/service-reservation/internal/platform/kafka"
)

type fakeWriter struct {
	err    error
	topic  string
	key    string
	events []kafka.CloudEvent
}

func (w *fakeWriter) PublishEventWithKey(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	w.topic, w.key = topic, key
	w.events = append(w.events, event)
	return w.err
}

type fakeSender struct {
	err  error
	sent []*gomail.Message
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

type countingNotifier struct {
	err   error
	calls int
}

func (c *countingNotifier) Notify(context.Context, uuid.UUID, string, map[string]interface{}) error {
	c.calls++
	return c.err
}

func TestKafkaNotifier_PublishesNotificationEvent(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)
	fixed := time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }
	user := uuid.New()

	err := n.Notify(context.Background(), user, schema.ReservationConfirmed, map[string]interface{}{"reference": "PK-ABCDEFGH"})
	require.NoError(t, err)

	assert.Equal(t, schema.TopicNotificationEvents, w.topic)
	assert.Equal(t, user.String(), w.key)
	require.Len(t, w.events, 1)
	assert.Equal(t, schema.NotificationRequested, w.events[0].Type)

	var evt schema.NotificationEvent
	require.NoError(t, w.events[0].ParseData(&evt))
	assert.Equal(t, user, evt.UserID)
	assert.Equal(t, schema.ReservationConfirmed, evt.EventType)
	assert.Equal(t, "PK-ABCDEFGH", evt.Context["reference"])
	assert.True(t, evt.OccurredAt.Equal(fixed))
}

func TestKafkaNotifier_WrapsWriterError(t *testing.T) {
	n := NewKafkaNotifier(&fakeWriter{err: errors.New("broker unavailable")})
	err := n.Notify(context.Background(), uuid.New(), schema.ReservationCreated, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestOpsMailNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := &OpsMailNotifier{sender: sender, from: "noreply@parkwise.test", to: "ops@parkwise.test", logger: zap.NewNop()}
	payload := map[string]interface{}{
		"refund_request_id": "req-1",
		"reservation_id":    "res-1",
		"amount":            "20.00",
		"currency":          "MYR",
		"reason":            "seeker_cancelled",
	}

	require.NoError(t, n.Notify(context.Background(), uuid.New(), schema.ReservationCancelled, payload))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), uuid.New(), schema.RefundRequested, payload))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@parkwise.test"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Refund request req-1 needs review"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "20.00 MYR")
}

func TestOpsMailNotifier_SendFailure(t *testing.T) {
	n := &OpsMailNotifier{sender: &fakeSender{err: errors.New("535 auth failed")}, to: "ops@parkwise.test", logger: zap.NewNop()}
	err := n.Notify(context.Background(), uuid.New(), schema.RefundRequested, map[string]interface{}{})
	assert.Error(t, err)
}

func TestFanout_CallsEveryNotifier(t *testing.T) {
	failing := &countingNotifier{err: errors.New("down")}
	healthy := &countingNotifier{}
	f := Fanout{failing, healthy}

	err := f.Notify(context.Background(), uuid.New(), schema.ReservationCreated, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)

	assert.NoError(t, Fanout{healthy}.Notify(context.Background(), uuid.New(), schema.ReservationCreated, nil))
}
