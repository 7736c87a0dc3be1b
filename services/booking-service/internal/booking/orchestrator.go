// Package booking coordinates slots, the ledger and the payment gate into the
// booking flows. It holds no lock while a charge is in flight: the slot is
// already reserved and the ledger is only touched after the gate returns.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	otelx "github.com/md-rashed-zaman/vetbook/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/payment"
)

type Slots interface {
	Reserve(ctx context.Context, key model.SlotKey) (model.TimeSlot, error)
	Release(ctx context.Context, key model.SlotKey) (bool, error)
}

type Charger interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (model.PaymentRecord, error)
}

type BookRequest struct {
	VeterinarianID string
	PetID          string
	Date           string
	StartTime      string
	// EndTime is informational; the reserved slot's end time is stored.
	EndTime       string
	Type          model.AppointmentType
	Severity      model.Severity
	Notes         string
	DepositCents  int64
	PaymentMethod string
}

func (r BookRequest) slot() model.SlotKey {
	return model.SlotKey{VeterinarianID: r.VeterinarianID, Date: r.Date, StartTime: r.StartTime}
}

func (r BookRequest) draft() ledger.Draft {
	deposit := r.DepositCents
	if deposit == 0 {
		deposit = DepositFor(r.Type)
	}
	return ledger.Draft{
		VeterinarianID: r.VeterinarianID,
		PetID:          r.PetID,
		Type:           r.Type,
		Severity:       r.Severity,
		Notes:          r.Notes,
		DepositCents:   deposit,
	}
}

// Result is returned even alongside a payment error so the caller learns the
// id of the pending appointment and of the failed attempt.
type Result struct {
	Appointment model.Appointment
	Payment     *model.PaymentRecord
}

type Orchestrator struct {
	slots  Slots
	ledger *ledger.Service
	gate   Charger
	logger *slog.Logger
	tracer trace.Tracer
}

func NewOrchestrator(slots Slots, l *ledger.Service, gate Charger, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		slots:  slots,
		ledger: l,
		gate:   gate,
		logger: logger,
		tracer: otelx.Tracer("booking-service/booking"),
	}
}

// BookAndPay reserves the slot, opens a pending appointment and charges the
// deposit. A declined charge leaves the appointment pending and unpaid.
func (o *Orchestrator) BookAndPay(ctx context.Context, callerID string, req BookRequest) (res Result, err error) {
	ctx, span := o.start(ctx, "booking.book_and_pay", attribute.String("slot", req.slot().String()))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return Result{}, fmt.Errorf("payment_method required: %w", model.ErrInvalidArgument)
	}
	appt, err := o.book(ctx, callerID, req)
	if err != nil {
		return Result{}, err
	}
	return o.pay(ctx, callerID, appt, req.PaymentMethod)
}

// Book reserves the slot and opens a pending appointment without charging.
func (o *Orchestrator) Book(ctx context.Context, callerID string, req BookRequest) (appt model.Appointment, err error) {
	ctx, span := o.start(ctx, "booking.book", attribute.String("slot", req.slot().String()))
	defer func() { endSpan(span, err) }()

	return o.book(ctx, callerID, req)
}

// PayDeposit charges the deposit of an existing pending appointment, e.g. to
// retry after a decline.
func (o *Orchestrator) PayDeposit(ctx context.Context, callerID, appointmentID, method string) (res Result, err error) {
	ctx, span := o.start(ctx, "booking.pay_deposit", attribute.String("appointment.id", appointmentID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(method) == "" {
		return Result{}, fmt.Errorf("payment_method required: %w", model.ErrInvalidArgument)
	}
	appt, err := o.ledger.Get(ctx, callerID, appointmentID)
	if err != nil {
		return Result{}, err
	}
	// Same guards as the ledger transition, checked before money moves.
	switch {
	case appt.OwnerID != callerID:
		return Result{}, fmt.Errorf("only the owner pays the deposit: %w", model.ErrUnauthorized)
	case appt.Status != model.StatusPending:
		return Result{}, fmt.Errorf("pay deposit on %s appointment: %w", appt.Status, model.ErrInvalidTransition)
	case appt.DepositPaid:
		return Result{}, fmt.Errorf("deposit already paid: %w", model.ErrInvalidTransition)
	}
	return o.pay(ctx, callerID, appt, method)
}

func (o *Orchestrator) Confirm(ctx context.Context, callerID, appointmentID string) (appt model.Appointment, err error) {
	ctx, span := o.start(ctx, "booking.confirm", attribute.String("appointment.id", appointmentID))
	defer func() { endSpan(span, err) }()

	return o.ledger.Confirm(ctx, callerID, appointmentID)
}

func (o *Orchestrator) Cancel(ctx context.Context, callerID, appointmentID string) (appt model.Appointment, err error) {
	ctx, span := o.start(ctx, "booking.cancel", attribute.String("appointment.id", appointmentID))
	defer func() { endSpan(span, err) }()

	return o.ledger.Cancel(ctx, callerID, appointmentID)
}

func (o *Orchestrator) Complete(ctx context.Context, callerID, appointmentID, notes string) (appt model.Appointment, err error) {
	ctx, span := o.start(ctx, "booking.complete", attribute.String("appointment.id", appointmentID))
	defer func() { endSpan(span, err) }()

	return o.ledger.Complete(ctx, callerID, appointmentID, notes)
}

func (o *Orchestrator) book(ctx context.Context, callerID string, req BookRequest) (model.Appointment, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return model.Appointment{}, err
	}
	draft := req.draft()
	if err := o.ledger.Validate(draft); err != nil {
		return model.Appointment{}, err
	}
	if err := o.ledger.CheckPetOwnership(ctx, callerID, req.PetID); err != nil {
		return model.Appointment{}, err
	}

	key := req.slot()
	slot, err := o.slots.Reserve(ctx, key)
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err := o.ledger.Create(ctx, callerID, slot, draft)
	if err != nil {
		o.compensate(ctx, key, err)
		return model.Appointment{}, err
	}
	return appt, nil
}

// compensate gives the slot back after a failed create.
func (o *Orchestrator) compensate(ctx context.Context, key model.SlotKey, cause error) {
	released, err := o.slots.Release(context.WithoutCancel(ctx), key)
	if err != nil {
		o.logger.Error("slot release after failed create failed",
			"slot", key.String(), "cause", cause, "err", err)
		return
	}
	o.logger.Warn("slot released after failed create",
		"slot", key.String(), "released", released, "cause", cause)
}

func (o *Orchestrator) pay(ctx context.Context, callerID string, appt model.Appointment, method string) (Result, error) {
	rec, err := o.gate.Charge(ctx, payment.ChargeRequest{
		AppointmentID: appt.ID,
		PayerID:       callerID,
		AmountCents:   appt.DepositCents,
		Method:        method,
	})
	if err != nil && !captured(rec) {
		if rec.ID == "" {
			return Result{Appointment: appt}, err
		}
		return Result{Appointment: appt, Payment: &rec}, err
	}
	if err != nil {
		// Money moved but the audit row was lost; the gate logged the provider
		// id. The appointment must still reflect the capture.
		o.logger.Error("deposit captured without payment record",
			"appointment_id", appt.ID,
			"provider_payment_id", rec.ProviderPaymentID,
			"err", err,
		)
	}

	// A captured charge is applied even if the caller has gone away.
	updated, err := o.ledger.PayDeposit(context.WithoutCancel(ctx), callerID, appt.ID, rec.ProviderPaymentID)
	if err != nil {
		// The charge went through but the appointment moved on meanwhile
		// (typically cancelled). The completed record is the refund trail.
		o.logger.Error("deposit captured but appointment not updated",
			"appointment_id", appt.ID,
			"payment_id", rec.ID,
			"provider_payment_id", rec.ProviderPaymentID,
			"err", err,
		)
		return Result{Appointment: appt, Payment: &rec}, err
	}
	return Result{Appointment: updated, Payment: &rec}, nil
}

func captured(rec model.PaymentRecord) bool {
	return rec.Status == model.PaymentCompleted && rec.ProviderPaymentID != ""
}

func (o *Orchestrator) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
