// Package payment charges appointment deposits. The gate holds no appointment
// state; it records one PaymentRecord per attempt and reports the outcome.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/vetbook/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

// Store appends payment records. Records are never updated.
type Store interface {
	RecordPayment(ctx context.Context, rec model.PaymentRecord) error
	ListPayments(ctx context.Context, appointmentID string) ([]model.PaymentRecord, error)
}

type ChargeRequest struct {
	AppointmentID string
	PayerID       string
	AmountCents   int64
	Method        string
}

type Gate struct {
	processor Processor
	store     Store
	timeout   time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGate builds a gate. timeout bounds a single charge as seen by the client
// and is independent of the processor's own latency.
func NewGate(processor Processor, store Store, timeout time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		processor: processor,
		store:     store,
		timeout:   timeout,
		logger:    logger,
		tracer:    otelx.Tracer("booking-service/payment"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Charge runs one payment attempt. On decline or timeout it records a failed
// attempt and returns the record together with model.ErrPaymentDeclined.
func (g *Gate) Charge(ctx context.Context, req ChargeRequest) (model.PaymentRecord, error) {
	if req.AmountCents <= 0 {
		return model.PaymentRecord{}, fmt.Errorf("amount must be positive: %w", model.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.Method) == "" {
		return model.PaymentRecord{}, fmt.Errorf("payment method required: %w", model.ErrInvalidArgument)
	}

	ctx, span := g.tracer.Start(ctx, "payment.charge", trace.WithAttributes(
		attribute.String("appointment.id", req.AppointmentID),
		attribute.Int64("amount_cents", req.AmountCents),
		attribute.String("method", req.Method),
	))
	defer span.End()

	chargeCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		chargeCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	rec := model.PaymentRecord{
		ID:            uuid.NewString(),
		AppointmentID: req.AppointmentID,
		PayerID:       req.PayerID,
		AmountCents:   req.AmountCents,
		Method:        req.Method,
		Status:        model.PaymentCompleted,
		CreatedAt:     g.now(),
	}

	providerID, procErr := g.processor.Process(chargeCtx, req.AmountCents, req.Method)
	if procErr != nil {
		rec.Status = model.PaymentFailed
		rec.FailureReason = failureReason(procErr)
	} else {
		rec.ProviderPaymentID = providerID
	}

	// The attempt is recorded even when the caller's context has expired.
	if err := g.store.RecordPayment(context.WithoutCancel(ctx), rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record payment")
		g.logger.Error("payment record write failed",
			"appointment_id", req.AppointmentID,
			"payment_id", rec.ID,
			"provider_payment_id", rec.ProviderPaymentID,
			"err", err,
		)
		return rec, fmt.Errorf("record payment: %w", err)
	}

	if procErr != nil {
		span.SetStatus(codes.Error, rec.FailureReason)
		g.logger.Warn("payment declined",
			"appointment_id", req.AppointmentID,
			"payment_id", rec.ID,
			"reason", rec.FailureReason,
		)
		return rec, fmt.Errorf("%s: %w", rec.FailureReason, model.ErrPaymentDeclined)
	}

	g.logger.Info("payment completed",
		"appointment_id", req.AppointmentID,
		"payment_id", rec.ID,
		"provider_payment_id", providerID,
	)
	return rec, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "payment timed out"
	case errors.Is(err, context.Canceled):
		return "payment cancelled"
	case errors.Is(err, ErrDeclined):
		return "card declined"
	default:
		return err.Error()
	}
}
