package memstore

import (
	"context"
	"sort"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (s *Store) Replace(_ context.Context, vetID, date string, windows []model.SlotWindow) ([]model.TimeSlot, error) {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()

	var reserved []model.SlotWindow
	for key, slot := range s.slots {
		if key.VeterinarianID != vetID || key.Date != date {
			continue
		}
		if slot.Reserved {
			reserved = append(reserved, model.SlotWindow{StartTime: slot.StartTime, EndTime: slot.EndTime})
			continue
		}
		delete(s.slots, key)
	}

	now := s.now()
	free := availability.FreeWindows(windows, reserved)
	out := make([]model.TimeSlot, 0, len(free))
	for _, w := range free {
		key := model.SlotKey{VeterinarianID: vetID, Date: date, StartTime: w.StartTime}
		slot := &model.TimeSlot{
			ID:             s.newID(),
			VeterinarianID: vetID,
			Date:           date,
			StartTime:      w.StartTime,
			EndTime:        w.EndTime,
			CreatedAt:      now,
		}
		s.slots[key] = slot
		out = append(out, *slot)
	}
	return out, nil
}

func (s *Store) ListAvailable(_ context.Context, vetID, date string) ([]model.TimeSlot, error) {
	return s.collect(func(slot *model.TimeSlot) bool {
		return slot.VeterinarianID == vetID && slot.Date == date && !slot.Reserved
	}), nil
}

func (s *Store) ListRange(_ context.Context, vetID, from, to string) ([]model.TimeSlot, error) {
	return s.collect(func(slot *model.TimeSlot) bool {
		return slot.VeterinarianID == vetID && slot.Date >= from && slot.Date <= to
	}), nil
}

func (s *Store) Reserve(_ context.Context, key model.SlotKey) (model.TimeSlot, error) {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()

	slot, ok := s.slots[key]
	if !ok || slot.Reserved {
		return model.TimeSlot{}, model.ErrSlotUnavailable
	}
	slot.Reserved = true
	return *slot, nil
}

func (s *Store) Release(_ context.Context, key model.SlotKey) (bool, error) {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	return s.releaseLocked(key), nil
}

func (s *Store) releaseLocked(key model.SlotKey) bool {
	slot, ok := s.slots[key]
	if !ok || !slot.Reserved {
		return false
	}
	slot.Reserved = false
	return true
}

func (s *Store) collect(match func(*model.TimeSlot) bool) []model.TimeSlot {
	s.slotMu.Lock()
	var out []model.TimeSlot
	for _, slot := range s.slots {
		if match(slot) {
			out = append(out, *slot)
		}
	}
	s.slotMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}
