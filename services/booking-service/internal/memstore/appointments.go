package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

func (s *Store) Create(ctx context.Context, appt model.Appointment, notices []model.Notification) error {
	events, err := outbox.NotificationEvents(ctx, notices)
	if err != nil {
		return err
	}

	s.apptMu.Lock()
	if _, exists := s.appts[appt.ID]; exists {
		s.apptMu.Unlock()
		return fmt.Errorf("appointment %s already exists", appt.ID)
	}
	s.appts[appt.ID] = appt
	s.apptMu.Unlock()

	s.appendEvents(events)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (model.Appointment, error) {
	s.apptMu.Lock()
	defer s.apptMu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (s *Store) Update(ctx context.Context, id string, fn func(model.Appointment) (ledger.Outcome, error)) (model.Appointment, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	out, err := fn(current)
	if err != nil {
		return model.Appointment{}, err
	}
	events, err := outbox.NotificationEvents(ctx, out.Notices)
	if err != nil {
		return model.Appointment{}, err
	}

	s.apptMu.Lock()
	s.appts[id] = out.Appointment
	s.apptMu.Unlock()

	if out.Release != nil {
		s.slotMu.Lock()
		s.releaseLocked(*out.Release)
		s.slotMu.Unlock()
	}
	s.appendEvents(events)
	return out.Appointment, nil
}

func (s *Store) List(_ context.Context, f ledger.ListFilter) ([]model.Appointment, error) {
	s.apptMu.Lock()
	var out []model.Appointment
	for _, a := range s.appts {
		if f.OwnerID != "" && a.OwnerID != f.OwnerID {
			continue
		}
		if f.VeterinarianID != "" && a.VeterinarianID != f.VeterinarianID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	s.apptMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.apptMu.Lock()
	defer s.apptMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}
