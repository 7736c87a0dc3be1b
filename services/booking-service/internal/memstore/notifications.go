package memstore

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (s *Store) AppendNotification(_ context.Context, n model.Notification) (bool, error) {
	s.noteMu.Lock()
	defer s.noteMu.Unlock()
	if _, exists := s.notes[n.ID]; exists {
		return false, nil
	}
	s.notes[n.ID] = n
	s.order = append(s.order, n.ID)
	return true, nil
}

func (s *Store) GetNotification(_ context.Context, id string) (model.Notification, error) {
	s.noteMu.Lock()
	defer s.noteMu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return model.Notification{}, model.ErrNotFound
	}
	return n, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) error {
	s.noteMu.Lock()
	defer s.noteMu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return model.ErrNotFound
	}
	n.Read = true
	s.notes[id] = n
	return nil
}

// ListNotifications returns newest first.
func (s *Store) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	s.noteMu.Lock()
	defer s.noteMu.Unlock()
	var out []model.Notification
	for i := len(s.order) - 1; i >= 0; i-- {
		n := s.notes[s.order[i]]
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
