package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

type Store interface {
	// AppendNotification inserts n unless a notification with the same id
	// exists, and reports whether it was inserted.
	AppendNotification(ctx context.Context, n model.Notification) (bool, error)
	GetNotification(ctx context.Context, id string) (model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Notification, error)
}

// Sink is the in-app notification inbox.
type Sink struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewSink(store Store, logger *slog.Logger) *Sink {
	return &Sink{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Notify appends a notification. Supplying an ID makes the call idempotent.
func (s *Sink) Notify(ctx context.Context, n model.Notification) (model.Notification, error) {
	if strings.TrimSpace(n.RecipientID) == "" {
		return model.Notification{}, fmt.Errorf("recipient required: %w", model.ErrInvalidArgument)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.Read = false

	inserted, err := s.store.AppendNotification(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("append notification: %w", err)
	}
	if inserted {
		s.logger.Info("notification recorded",
			"notification_id", n.ID,
			"recipient_id", n.RecipientID,
			"type", n.Type,
			"appointment_id", n.AppointmentID,
		)
	}
	return n, nil
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (s *Sink) MarkRead(ctx context.Context, callerID, id string) error {
	if err := directory.RequireCaller(callerID); err != nil {
		return err
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != callerID {
		return model.ErrUnauthorized
	}
	if n.Read {
		return nil
	}
	return s.store.MarkNotificationRead(ctx, id)
}

func (s *Sink) List(ctx context.Context, callerID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, callerID, unreadOnly, limit)
}

// Handle consumes notification events from the outbox.
func (s *Sink) Handle(ctx context.Context, r outbox.Record) error {
	if r.AggregateType != outbox.AggregateAppointment || !strings.HasPrefix(r.EventType, "booking.notification.") {
		return nil
	}
	var n model.Notification
	if err := json.Unmarshal(r.Payload, &n); err != nil {
		// A payload that cannot decode will never succeed; skip it.
		s.logger.Error("drop undecodable notification event", "event_id", r.ID, "err", err)
		return nil
	}
	_, err := s.Notify(ctx, n)
	return err
}
