package memstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

func TestLoadSeed(t *testing.T) {
	s := New()
	err := s.LoadSeed(strings.NewReader(`{
		"profiles": [{"user_id": "vet-1", "display_name": "Dr. Ito", "role": "veterinarian"}],
		"pets": [{"id": "pet-1", "owner_id": "owner-1", "name": "Tofu", "species": "cat"}]
	}`))
	require.NoError(t, err)

	p, err := s.Profile(context.Background(), "vet-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleVeterinarian, p.Role)

	pet, err := s.Pet(context.Background(), "pet-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", pet.OwnerID)

	_, err = s.Pet(context.Background(), "pet-2")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.Error(t, s.LoadSeed(strings.NewReader("not json")))
}

func TestUpdateWritesNothingOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Replace(ctx, "vet-1", "2030-01-01", []model.SlotWindow{{StartTime: "09:00", EndTime: "09:30"}})
	require.NoError(t, err)
	slot, err := s.Reserve(ctx, model.SlotKey{VeterinarianID: "vet-1", Date: "2030-01-01", StartTime: "09:00"})
	require.NoError(t, err)

	appt := model.Appointment{ID: "a1", VeterinarianID: "vet-1", Date: slot.Date, StartTime: slot.StartTime, Status: model.StatusPending}
	require.NoError(t, s.Create(ctx, appt, nil))

	boom := errors.New("boom")
	_, err = s.Update(ctx, "a1", func(a model.Appointment) (ledger.Outcome, error) {
		return ledger.Outcome{}, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 0, s.Pending())

	key := appt.Slot()
	_, err = s.Update(ctx, "a1", func(a model.Appointment) (ledger.Outcome, error) {
		a.Status = model.StatusCancelled
		return ledger.Outcome{
			Appointment: a,
			Release:     &key,
			Notices:     []model.Notification{{ID: "n1", RecipientID: "owner-1", Type: model.NotificationAppointmentCancelled}},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	open, err := s.ListAvailable(ctx, "vet-1", "2030-01-01")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = s.Update(ctx, "missing", func(a model.Appointment) (ledger.Outcome, error) {
		return ledger.Outcome{Appointment: a}, nil
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClaimMarksOnlyReturnedRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"n1", "n2", "n3"} {
		evt, err := outbox.NotificationEvent(ctx, model.Notification{ID: id, Type: model.NotificationAppointmentBooked})
		require.NoError(t, err)
		s.appendEvents([]outbox.Event{evt})
	}

	err := s.Claim(ctx, 10, func(_ context.Context, batch []outbox.Record) ([]int64, error) {
		require.Len(t, batch, 3)
		return []int64{batch[0].Seq}, errors.New("second failed")
	})
	require.Error(t, err)
	assert.Equal(t, 2, s.Pending())

	var seen []int64
	require.NoError(t, s.Claim(ctx, 1, func(_ context.Context, batch []outbox.Record) ([]int64, error) {
		for _, r := range batch {
			seen = append(seen, r.Seq)
		}
		return seen, nil
	}))
	assert.Equal(t, []int64{2}, seen)
	assert.Equal(t, 1, s.Pending())
}

func TestClaimTrimsDeliveredPrefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"n1", "n2", "n3"} {
		evt, err := outbox.NotificationEvent(ctx, model.Notification{ID: id, Type: model.NotificationAppointmentBooked})
		require.NoError(t, err)
		s.appendEvents([]outbox.Event{evt})
	}

	// Out-of-order acknowledgement keeps the log intact.
	require.NoError(t, s.Claim(ctx, 10, func(_ context.Context, batch []outbox.Record) ([]int64, error) {
		return []int64{batch[1].Seq}, nil
	}))
	assert.Len(t, s.events, 3)
	assert.Equal(t, 2, s.Pending())

	var next []int64
	require.NoError(t, s.Claim(ctx, 10, func(_ context.Context, batch []outbox.Record) ([]int64, error) {
		for _, r := range batch {
			next = append(next, r.Seq)
		}
		return []int64{batch[0].Seq}, nil
	}))
	assert.Equal(t, []int64{1, 3}, next)
	assert.Len(t, s.events, 1, "delivered prefix is dropped")
	assert.Empty(t, s.delivered)
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Claim(ctx, 10, func(_ context.Context, batch []outbox.Record) ([]int64, error) {
		return []int64{batch[0].Seq}, nil
	}))
	assert.Empty(t, s.events)
	assert.Equal(t, 0, s.Pending())
}
