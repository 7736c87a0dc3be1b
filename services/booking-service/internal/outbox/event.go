package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/vetbook/libs/otel"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const AggregateAppointment = "appointment"

// Event is the envelope written to the outbox in the same transaction as the
// state change it describes. The Kafka topic name equals EventType.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
}

// Record is a stored event. Seq orders delivery.
type Record struct {
	Seq int64
	Event
	CreatedAt time.Time
}

func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) Event {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	return Event{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Traceparent:   traceparent,
		Tracestate:    tracestate,
	}
}

func NotificationEventType(t model.NotificationType) string {
	return "booking.notification." + string(t) + ".v1"
}

// NotificationEvent wraps a notification for delivery to the sink.
func NotificationEvent(ctx context.Context, n model.Notification) (Event, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Event{}, err
	}
	return NewEvent(ctx, AggregateAppointment, n.AppointmentID, NotificationEventType(n.Type), payload), nil
}

// NotificationEvents converts a batch, stopping at the first encoding error.
func NotificationEvents(ctx context.Context, notices []model.Notification) ([]Event, error) {
	out := make([]Event, 0, len(notices))
	for _, n := range notices {
		evt, err := NotificationEvent(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, nil
}
