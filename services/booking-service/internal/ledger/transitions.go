package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

// Outcome is the result of one transition: the new appointment state, the slot
// to release (if any) and the notifications to emit. A repository persists all
// three atomically.
type Outcome struct {
	Appointment model.Appointment
	Release     *model.SlotKey
	Notices     []model.Notification
}

// Draft carries the caller-supplied fields of a new appointment.
type Draft struct {
	VeterinarianID string
	PetID          string
	Type           model.AppointmentType
	Severity       model.Severity
	Notes          string
	DepositCents   int64
}

func (d Draft) validate() error {
	switch {
	case strings.TrimSpace(d.VeterinarianID) == "":
		return fmt.Errorf("veterinarian_id required: %w", model.ErrInvalidArgument)
	case strings.TrimSpace(d.PetID) == "":
		return fmt.Errorf("pet_id required: %w", model.ErrInvalidArgument)
	case !d.Type.Valid():
		return fmt.Errorf("appointment type %q: %w", d.Type, model.ErrInvalidArgument)
	case !d.Severity.Valid():
		return fmt.Errorf("severity %q: %w", d.Severity, model.ErrInvalidArgument)
	case d.DepositCents <= 0:
		return fmt.Errorf("deposit must be positive: %w", model.ErrInvalidArgument)
	}
	return nil
}

// open builds a pending appointment on a reserved slot. Date and times are
// copied from the slot.
func open(id, ownerID string, slot model.TimeSlot, d Draft, now time.Time) Outcome {
	appt := model.Appointment{
		ID:             id,
		OwnerID:        ownerID,
		VeterinarianID: slot.VeterinarianID,
		PetID:          d.PetID,
		Date:           slot.Date,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Type:           d.Type,
		Severity:       d.Severity,
		Status:         model.StatusPending,
		Notes:          strings.TrimSpace(d.Notes),
		DepositCents:   d.DepositCents,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return Outcome{
		Appointment: appt,
		Notices: []model.Notification{notice(appt, appt.VeterinarianID, model.NotificationAppointmentBooked,
			"New Appointment Request",
			fmt.Sprintf("New appointment request for %s at %s", appt.Date, appt.StartTime))},
	}
}

func payDeposit(a model.Appointment, callerID, paymentID string, now time.Time) (Outcome, error) {
	if callerID != a.OwnerID {
		return Outcome{}, fmt.Errorf("only the owner pays the deposit: %w", model.ErrUnauthorized)
	}
	if a.Status != model.StatusPending {
		return Outcome{}, fmt.Errorf("pay deposit on %s appointment: %w", a.Status, model.ErrInvalidTransition)
	}
	if a.DepositPaid {
		return Outcome{}, fmt.Errorf("deposit already paid: %w", model.ErrInvalidTransition)
	}
	if strings.TrimSpace(paymentID) == "" {
		return Outcome{}, fmt.Errorf("payment id required: %w", model.ErrInvalidArgument)
	}

	a.DepositPaid = true
	a.PaymentID = paymentID
	a.UpdatedAt = now
	return Outcome{
		Appointment: a,
		Notices: []model.Notification{notice(a, a.VeterinarianID, model.NotificationPaymentReceived,
			"Payment Received",
			fmt.Sprintf("Deposit payment received for appointment on %s", a.Date))},
	}, nil
}

func confirm(a model.Appointment, callerID string, now time.Time) (Outcome, error) {
	if callerID != a.VeterinarianID {
		return Outcome{}, fmt.Errorf("only the appointment's veterinarian confirms: %w", model.ErrUnauthorized)
	}
	if a.Status != model.StatusPending {
		return Outcome{}, fmt.Errorf("confirm %s appointment: %w", a.Status, model.ErrInvalidTransition)
	}
	if !a.DepositPaid {
		return Outcome{}, model.ErrDepositRequired
	}

	a.Status = model.StatusConfirmed
	a.UpdatedAt = now
	return Outcome{
		Appointment: a,
		Notices: []model.Notification{notice(a, a.OwnerID, model.NotificationAppointmentConfirmed,
			"Appointment Confirmed",
			fmt.Sprintf("Your appointment for %s at %s has been confirmed", a.Date, a.StartTime))},
	}, nil
}

func cancel(a model.Appointment, callerID string, now time.Time) (Outcome, error) {
	if !a.Participant(callerID) {
		return Outcome{}, fmt.Errorf("only the owner or veterinarian cancels: %w", model.ErrUnauthorized)
	}
	if a.Status != model.StatusPending && a.Status != model.StatusConfirmed {
		return Outcome{}, fmt.Errorf("cancel %s appointment: %w", a.Status, model.ErrInvalidTransition)
	}

	recipient := a.VeterinarianID
	if callerID == a.VeterinarianID {
		recipient = a.OwnerID
	}
	a.Status = model.StatusCancelled
	a.UpdatedAt = now
	slot := a.Slot()
	return Outcome{
		Appointment: a,
		Release:     &slot,
		Notices: []model.Notification{notice(a, recipient, model.NotificationAppointmentCancelled,
			"Appointment Cancelled",
			fmt.Sprintf("Appointment for %s at %s has been cancelled", a.Date, a.StartTime))},
	}, nil
}

// complete emits no notification.
func complete(a model.Appointment, callerID, notes string, now time.Time) (Outcome, error) {
	if callerID != a.VeterinarianID {
		return Outcome{}, fmt.Errorf("only the appointment's veterinarian completes: %w", model.ErrUnauthorized)
	}
	if a.Status != model.StatusConfirmed {
		return Outcome{}, fmt.Errorf("complete %s appointment: %w", a.Status, model.ErrInvalidTransition)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return Outcome{}, fmt.Errorf("treatment notes required: %w", model.ErrInvalidArgument)
	}

	a.Status = model.StatusCompleted
	a.VeterinarianNotes = notes
	a.UpdatedAt = now
	return Outcome{Appointment: a}, nil
}

func notice(a model.Appointment, recipient string, typ model.NotificationType, title, message string) model.Notification {
	return model.Notification{
		RecipientID:   recipient,
		Title:         title,
		Message:       message,
		Type:          typ,
		AppointmentID: a.ID,
	}
}
