// Package ledger owns appointment records and their status machine:
//
//	pending -> confirmed -> completed
//	pending -> cancelled
//	confirmed -> cancelled
//
// Completed and cancelled are terminal. Every transition runs under the
// repository's per-appointment lock, so concurrent mutations of one
// appointment are serialized and the loser observes the winner's state.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ListFilter struct {
	OwnerID        string
	VeterinarianID string
	Status         model.AppointmentStatus
	Limit          int
}

type Repository interface {
	// Create stores a new appointment and its notifications together.
	Create(ctx context.Context, appt model.Appointment, notices []model.Notification) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	// Update locks the appointment, applies fn to its current state and
	// persists the outcome (state, slot release, notifications) atomically.
	// Nothing is written when fn fails.
	Update(ctx context.Context, id string, fn func(model.Appointment) (Outcome, error)) (model.Appointment, error)
	// List returns appointments newest first.
	List(ctx context.Context, filter ListFilter) ([]model.Appointment, error)
}

type Service struct {
	repo     Repository
	pets     directory.Pets
	profiles directory.Profiles
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(repo Repository, pets directory.Pets, profiles directory.Profiles, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		pets:     pets,
		profiles: profiles,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPetOwnership validates the booking precondition before any slot is reserved.
func (s *Service) CheckPetOwnership(ctx context.Context, callerID, petID string) error {
	_, err := directory.RequirePetOwner(ctx, s.pets, callerID, petID)
	return err
}

// Validate checks a draft without touching storage.
func (s *Service) Validate(d Draft) error {
	return d.validate()
}

// Create opens a pending appointment on a slot the caller has already reserved.
func (s *Service) Create(ctx context.Context, callerID string, slot model.TimeSlot, d Draft) (model.Appointment, error) {
	if err := d.validate(); err != nil {
		return model.Appointment{}, err
	}
	if slot.VeterinarianID != d.VeterinarianID || !slot.Reserved {
		return model.Appointment{}, fmt.Errorf("slot %s not reserved for this booking: %w", slot.Key(), model.ErrSlotUnavailable)
	}
	if err := s.CheckPetOwnership(ctx, callerID, d.PetID); err != nil {
		return model.Appointment{}, err
	}

	out := open(s.newID(), callerID, slot, d, s.now())
	notices := s.stamp(out.Notices)
	if err := s.repo.Create(ctx, out.Appointment, notices); err != nil {
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	s.logger.Info("appointment created",
		"appointment_id", out.Appointment.ID,
		"veterinarian_id", out.Appointment.VeterinarianID,
		"slot", slot.Key().String(),
	)
	return out.Appointment, nil
}

// Get returns an appointment visible to its owner or veterinarian.
func (s *Service) Get(ctx context.Context, callerID, id string) (model.Appointment, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return model.Appointment{}, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !a.Participant(callerID) {
		return model.Appointment{}, model.ErrUnauthorized
	}
	return a, nil
}

func (s *Service) PayDeposit(ctx context.Context, callerID, id, paymentID string) (model.Appointment, error) {
	return s.transition(ctx, "pay_deposit", callerID, id, func(a model.Appointment) (Outcome, error) {
		return payDeposit(a, callerID, paymentID, s.now())
	})
}

func (s *Service) Confirm(ctx context.Context, callerID, id string) (model.Appointment, error) {
	return s.transition(ctx, "confirm", callerID, id, func(a model.Appointment) (Outcome, error) {
		return confirm(a, callerID, s.now())
	})
}

// Cancel also releases the appointment's slot in the same write.
func (s *Service) Cancel(ctx context.Context, callerID, id string) (model.Appointment, error) {
	return s.transition(ctx, "cancel", callerID, id, func(a model.Appointment) (Outcome, error) {
		return cancel(a, callerID, s.now())
	})
}

func (s *Service) Complete(ctx context.Context, callerID, id, notes string) (model.Appointment, error) {
	return s.transition(ctx, "complete", callerID, id, func(a model.Appointment) (Outcome, error) {
		return complete(a, callerID, notes, s.now())
	})
}

func (s *Service) ListForOwner(ctx context.Context, callerID string, status model.AppointmentStatus, limit int) ([]model.Appointment, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return nil, err
	}
	f, err := newFilter(status, limit)
	if err != nil {
		return nil, err
	}
	f.OwnerID = callerID
	return s.repo.List(ctx, f)
}

func (s *Service) ListForVeterinarian(ctx context.Context, callerID string, status model.AppointmentStatus, limit int) ([]model.Appointment, error) {
	if _, err := directory.RequireRole(ctx, s.profiles, callerID, model.RoleVeterinarian); err != nil {
		return nil, err
	}
	f, err := newFilter(status, limit)
	if err != nil {
		return nil, err
	}
	f.VeterinarianID = callerID
	return s.repo.List(ctx, f)
}

func (s *Service) transition(ctx context.Context, op, callerID, id string, fn func(model.Appointment) (Outcome, error)) (model.Appointment, error) {
	if err := directory.RequireCaller(callerID); err != nil {
		return model.Appointment{}, err
	}
	if strings.TrimSpace(id) == "" {
		return model.Appointment{}, fmt.Errorf("appointment_id required: %w", model.ErrInvalidArgument)
	}

	updated, err := s.repo.Update(ctx, id, func(a model.Appointment) (Outcome, error) {
		out, err := fn(a)
		if err != nil {
			return Outcome{}, err
		}
		out.Notices = s.stamp(out.Notices)
		return out, nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment transition",
		"op", op,
		"appointment_id", updated.ID,
		"status", updated.Status,
		"deposit_paid", updated.DepositPaid,
	)
	return updated, nil
}

func (s *Service) stamp(notices []model.Notification) []model.Notification {
	now := s.now()
	out := make([]model.Notification, len(notices))
	for i, n := range notices {
		n.ID = s.newID()
		n.CreatedAt = now
		out[i] = n
	}
	return out
}

func newFilter(status model.AppointmentStatus, limit int) (ListFilter, error) {
	if status != "" && !status.Valid() {
		return ListFilter{}, fmt.Errorf("status %q: %w", status, model.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return ListFilter{Status: status, Limit: limit}, nil
}
