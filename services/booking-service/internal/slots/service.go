package slots

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

// maxScheduleDays bounds schedule range queries.
const maxScheduleDays = 62

type Service struct {
	store    Store
	profiles directory.Profiles
	logger   *slog.Logger
}

func NewService(store Store, profiles directory.Profiles, logger *slog.Logger) *Service {
	return &Service{store: store, profiles: profiles, logger: logger}
}

// PublishSlots replaces the caller's unreserved slots for date. Reserved slots
// are kept as they are.
func (s *Service) PublishSlots(ctx context.Context, callerID, date string, windows []model.SlotWindow) ([]model.TimeSlot, error) {
	if _, err := directory.RequireRole(ctx, s.profiles, callerID, model.RoleVeterinarian); err != nil {
		return nil, err
	}
	if !availability.ValidDate(date) {
		return nil, fmt.Errorf("date %q: %w", date, model.ErrInvalidArgument)
	}
	sorted, err := availability.ValidateWindows(windows)
	if err != nil {
		return nil, err
	}

	published, err := s.store.Replace(ctx, callerID, date, sorted)
	if err != nil {
		return nil, fmt.Errorf("replace slots: %w", err)
	}
	s.logger.Info("slots published",
		"veterinarian_id", callerID,
		"date", date,
		"requested", len(sorted),
		"published", len(published),
	)
	return published, nil
}

// GenerateDefaultSlots publishes the standard clinic day for date.
func (s *Service) GenerateDefaultSlots(ctx context.Context, callerID, date string) ([]model.TimeSlot, error) {
	windows, err := availability.DaySlots(availability.DefaultOpen, availability.DefaultClose, availability.DefaultDuration)
	if err != nil {
		return nil, err
	}
	return s.PublishSlots(ctx, callerID, date, windows)
}

func (s *Service) ListAvailable(ctx context.Context, vetID, date string) ([]model.TimeSlot, error) {
	if vetID == "" {
		return nil, fmt.Errorf("veterinarian_id required: %w", model.ErrInvalidArgument)
	}
	if !availability.ValidDate(date) {
		return nil, fmt.Errorf("date %q: %w", date, model.ErrInvalidArgument)
	}
	return s.store.ListAvailable(ctx, vetID, date)
}

// Schedule lists all slots of a veterinarian between two inclusive dates.
// An empty vetID means the caller's own schedule.
func (s *Service) Schedule(ctx context.Context, callerID, vetID, from, to string) ([]model.TimeSlot, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return nil, err
	}
	if vetID == "" {
		vetID = callerID
	}
	days, err := spanDays(from, to)
	if err != nil {
		return nil, err
	}
	if days > maxScheduleDays {
		return nil, fmt.Errorf("range exceeds %d days: %w", maxScheduleDays, model.ErrInvalidArgument)
	}
	return s.store.ListRange(ctx, vetID, from, to)
}

func (s *Service) Reserve(ctx context.Context, key model.SlotKey) (model.TimeSlot, error) {
	return s.store.Reserve(ctx, key)
}

func (s *Service) Release(ctx context.Context, key model.SlotKey) (bool, error) {
	return s.store.Release(ctx, key)
}
