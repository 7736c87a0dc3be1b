package ledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const (
	vetID   = "vet-1"
	ownerID = "owner-1"
	petID   = "pet-1"
)

var fixedNow = time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)

type env struct {
	store *memstore.Store
	svc   *ledger.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	store.PutProfile(model.Profile{UserID: vetID, Role: model.RoleVeterinarian})
	store.PutProfile(model.Profile{UserID: ownerID, Role: model.RolePetOwner})
	store.PutPet(model.Pet{ID: petID, OwnerID: ownerID})

	_, err := store.Replace(context.Background(), vetID, "2030-01-03", []model.SlotWindow{
		{StartTime: "09:00", EndTime: "09:30"},
		{StartTime: "09:30", EndTime: "10:00"},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ledger.NewService(store, store, store, logger, ledger.WithClock(func() time.Time { return fixedNow }))
	return &env{store: store, svc: svc}
}

func (e *env) open(t *testing.T, start string) model.Appointment {
	t.Helper()
	ctx := context.Background()
	slot, err := e.store.Reserve(ctx, model.SlotKey{VeterinarianID: vetID, Date: "2030-01-03", StartTime: start})
	require.NoError(t, err)
	appt, err := e.svc.Create(ctx, ownerID, slot, ledger.Draft{
		VeterinarianID: vetID,
		PetID:          petID,
		Type:           model.TypeDental,
		Severity:       model.SeverityMedium,
		DepositCents:   1200,
	})
	require.NoError(t, err)
	return appt
}

func (e *env) paid(t *testing.T, start string) model.Appointment {
	t.Helper()
	appt := e.open(t, start)
	appt, err := e.svc.PayDeposit(context.Background(), ownerID, appt.ID, "pay_1")
	require.NoError(t, err)
	return appt
}

func TestCreateCopiesSlotAndNotifiesVet(t *testing.T) {
	e := newEnv(t)
	appt := e.open(t, "09:00")

	assert.Equal(t, model.StatusPending, appt.Status)
	assert.Equal(t, "2030-01-03", appt.Date)
	assert.Equal(t, "09:30", appt.EndTime)
	assert.False(t, appt.DepositPaid)
	assert.Equal(t, fixedNow, appt.CreatedAt)
	assert.Equal(t, 1, e.store.Pending())
}

func TestCreateRejectsUnreservedSlot(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(context.Background(), ownerID, model.TimeSlot{
		VeterinarianID: vetID, Date: "2030-01-03", StartTime: "09:00", EndTime: "09:30",
	}, ledger.Draft{VeterinarianID: vetID, PetID: petID, Type: model.TypeDental, Severity: model.SeverityLow, DepositCents: 100})
	assert.ErrorIs(t, err, model.ErrSlotUnavailable)
}

func TestDraftValidation(t *testing.T) {
	e := newEnv(t)
	base := ledger.Draft{VeterinarianID: vetID, PetID: petID, Type: model.TypeDental, Severity: model.SeverityLow, DepositCents: 100}

	bad := []func(*ledger.Draft){
		func(d *ledger.Draft) { d.VeterinarianID = "" },
		func(d *ledger.Draft) { d.PetID = " " },
		func(d *ledger.Draft) { d.Type = "massage" },
		func(d *ledger.Draft) { d.Severity = "mild" },
		func(d *ledger.Draft) { d.DepositCents = 0 },
	}
	for _, mutate := range bad {
		d := base
		mutate(&d)
		assert.ErrorIs(t, e.svc.Validate(d), model.ErrInvalidArgument)
	}
	assert.NoError(t, e.svc.Validate(base))
}

func TestConfirmGuardsInOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.open(t, "09:00")

	// Authorization is checked before status and deposit.
	_, err := e.svc.Confirm(ctx, ownerID, appt.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = e.svc.Confirm(ctx, vetID, appt.ID)
	assert.ErrorIs(t, err, model.ErrDepositRequired)

	_, err = e.svc.PayDeposit(ctx, ownerID, appt.ID, "pay_1")
	require.NoError(t, err)

	confirmed, err := e.svc.Confirm(ctx, vetID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)

	_, err = e.svc.Confirm(ctx, vetID, appt.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestPayDepositGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.open(t, "09:00")

	_, err := e.svc.PayDeposit(ctx, vetID, appt.ID, "pay_1")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = e.svc.PayDeposit(ctx, ownerID, appt.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	paid, err := e.svc.PayDeposit(ctx, ownerID, appt.ID, "pay_1")
	require.NoError(t, err)
	assert.True(t, paid.DepositPaid)
	assert.Equal(t, "pay_1", paid.PaymentID)

	_, err = e.svc.PayDeposit(ctx, ownerID, appt.ID, "pay_2")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestCancelReleasesSlotAndIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.paid(t, "09:30")

	_, err := e.svc.Cancel(ctx, "stranger", appt.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	cancelled, err := e.svc.Cancel(ctx, vetID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	open, err := e.store.ListAvailable(ctx, vetID, "2030-01-03")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	for _, op := range []func() error{
		func() error { _, err := e.svc.Cancel(ctx, ownerID, appt.ID); return err },
		func() error { _, err := e.svc.Confirm(ctx, vetID, appt.ID); return err },
		func() error { _, err := e.svc.Complete(ctx, vetID, appt.ID, "notes"); return err },
		func() error { _, err := e.svc.PayDeposit(ctx, ownerID, appt.ID, "pay_9"); return err },
	} {
		assert.ErrorIs(t, op(), model.ErrInvalidTransition)
	}
}

func TestCompleteRequiresConfirmedAndNotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.paid(t, "09:00")

	_, err := e.svc.Complete(ctx, vetID, appt.ID, "done")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = e.svc.Confirm(ctx, vetID, appt.ID)
	require.NoError(t, err)

	_, err = e.svc.Complete(ctx, vetID, appt.ID, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.svc.Complete(ctx, ownerID, appt.ID, "done")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	done, err := e.svc.Complete(ctx, vetID, appt.ID, " Cleaned teeth ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, "Cleaned teeth", done.VeterinarianNotes)

	_, err = e.svc.Cancel(ctx, ownerID, appt.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestConcurrentConfirmAndCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.paid(t, "09:00")

	var wg sync.WaitGroup
	var confirmErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, confirmErr = e.svc.Confirm(ctx, vetID, appt.ID)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = e.svc.Cancel(ctx, ownerID, appt.ID)
	}()
	wg.Wait()

	final, err := e.store.Get(ctx, appt.ID)
	require.NoError(t, err)
	// Cancel always succeeds: it applies to pending and to confirmed.
	require.NoError(t, cancelErr)
	assert.Equal(t, model.StatusCancelled, final.Status)
	if confirmErr != nil {
		assert.True(t, errors.Is(confirmErr, model.ErrInvalidTransition))
	}
}

func TestGetIsParticipantOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	appt := e.open(t, "09:00")

	_, err := e.svc.Get(ctx, "", appt.ID)
	assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	_, err = e.svc.Get(ctx, "stranger", appt.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = e.svc.Get(ctx, vetID, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := e.svc.Get(ctx, vetID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
}

func TestListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.open(t, "09:00")
	e.paid(t, "09:30")

	mine, err := e.svc.ListForOwner(ctx, ownerID, "", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	limited, err := e.svc.ListForOwner(ctx, ownerID, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = e.svc.ListForOwner(ctx, ownerID, "archived", 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = e.svc.ListForVeterinarian(ctx, ownerID, "", 0)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	pending, err := e.svc.ListForVeterinarian(ctx, vetID, model.StatusPending, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
