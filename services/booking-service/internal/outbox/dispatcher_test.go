package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetbook/libs/kafkax"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type sliceStore struct {
	records   []Record
	delivered map[int64]bool
}

func (s *sliceStore) Claim(ctx context.Context, limit int, fn func(context.Context, []Record) ([]int64, error)) error {
	var batch []Record
	for _, r := range s.records {
		if !s.delivered[r.Seq] && len(batch) < limit {
			batch = append(batch, r)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	done, err := fn(ctx, batch)
	for _, seq := range done {
		s.delivered[seq] = true
	}
	return err
}

func newStore(t *testing.T, n int) *sliceStore {
	t.Helper()
	s := &sliceStore{delivered: map[int64]bool{}}
	for i := 1; i <= n; i++ {
		evt, err := NotificationEvent(context.Background(), model.Notification{
			ID:            "n-" + string(rune('0'+i)),
			AppointmentID: "appt-1",
			Type:          model.NotificationAppointmentBooked,
		})
		require.NoError(t, err)
		s.records = append(s.records, Record{Seq: int64(i), Event: evt, CreatedAt: time.Now()})
	}
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherStopsAtFirstFailure(t *testing.T) {
	store := newStore(t, 3)
	var seen []int64
	failOn := int64(2)
	h := HandlerFunc(func(_ context.Context, r Record) error {
		if r.Seq == failOn {
			return errors.New("sink down")
		}
		seen = append(seen, r.Seq)
		return nil
	})
	d := NewDispatcher(store, discardLogger(), DispatcherConfig{BatchSize: 10}, h)

	n, err := d.DispatchOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, store.delivered[1])
	assert.False(t, store.delivered[2])
	assert.False(t, store.delivered[3])

	failOn = 0
	n, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestDispatcherRespectsBatchSize(t *testing.T) {
	store := newStore(t, 5)
	d := NewDispatcher(store, discardLogger(), DispatcherConfig{BatchSize: 2},
		HandlerFunc(func(context.Context, Record) error { return nil }))

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.delivered, 2)
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisherSetsTopicKeyAndHeaders(t *testing.T) {
	store := newStore(t, 1)
	w := &captureWriter{}
	require.NoError(t, NewKafkaPublisher(w).Handle(context.Background(), store.records[0]))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "booking.notification.appointment_booked.v1", msg.Topic)
	assert.Equal(t, "appt-1", string(msg.Key))
	meta := kafkax.ExtractEventMeta(msg)
	assert.Equal(t, store.records[0].ID, meta.EventID)
	assert.Equal(t, msg.Topic, meta.EventType)
}
