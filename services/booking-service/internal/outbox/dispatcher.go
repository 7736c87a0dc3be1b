package outbox

import (
	"context"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/vetbook/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store hands out undelivered records. Claim passes up to limit records to fn
// and marks the sequence numbers fn returns as delivered, even when fn also
// returns an error.
type Store interface {
	Claim(ctx context.Context, limit int, fn func(context.Context, []Record) ([]int64, error)) error
}

// Handler delivers one record. Handlers must tolerate redelivery.
type Handler interface {
	Handle(ctx context.Context, r Record) error
}

type HandlerFunc func(ctx context.Context, r Record) error

func (f HandlerFunc) Handle(ctx context.Context, r Record) error { return f(ctx, r) }

type DispatcherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// Dispatcher drains the outbox in order. A record is marked delivered only
// after every handler accepted it; the first failure stops the batch so later
// records are not delivered ahead of it.
type Dispatcher struct {
	store     Store
	handlers  []Handler
	logger    *slog.Logger
	tracer    trace.Tracer
	pollEvery time.Duration
	batchSize int
}

func NewDispatcher(store Store, logger *slog.Logger, cfg DispatcherConfig, handlers ...Handler) *Dispatcher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Dispatcher{
		store:     store,
		handlers:  handlers,
		logger:    logger,
		tracer:    otelx.Tracer("booking-service/outbox"),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Keep draining while full batches come back.
			for {
				n, err := d.DispatchOnce(ctx)
				if err != nil {
					d.logger.Error("outbox dispatch failed", "err", err)
					break
				}
				if n < d.batchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// DispatchOnce delivers at most one batch and returns how many records were
// marked delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	delivered := 0
	err := d.store.Claim(ctx, d.batchSize, func(ctx context.Context, records []Record) ([]int64, error) {
		done := make([]int64, 0, len(records))
		for _, r := range records {
			if err := d.deliver(ctx, r); err != nil {
				return done, err
			}
			done = append(done, r.Seq)
		}
		delivered = len(done)
		return done, nil
	})
	return delivered, err
}

func (d *Dispatcher) deliver(ctx context.Context, r Record) error {
	ctx = otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	ctx, span := d.tracer.Start(ctx, "outbox.deliver", trace.WithAttributes(
		attribute.String("event.id", r.ID),
		attribute.String("event.type", r.EventType),
		attribute.String("aggregate.id", r.AggregateID),
	))
	defer span.End()

	for _, h := range d.handlers {
		if err := h.Handle(ctx, r); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.Warn("outbox handler failed", "event_id", r.ID, "event_type", r.EventType, "err", err)
			return err
		}
	}
	d.logger.Debug("outbox event delivered", "event_id", r.ID, "event_type", r.EventType)
	return nil
}
