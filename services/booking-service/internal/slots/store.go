package slots

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

// Store persists time slots. Reserve is the only serialization point for a
// slot: it must flip exactly one unreserved slot per key, atomically.
type Store interface {
	// Replace drops the unreserved slots of (vet, date) and inserts windows.
	// A window whose start collides with a reserved slot is skipped.
	Replace(ctx context.Context, vetID, date string, windows []model.SlotWindow) ([]model.TimeSlot, error)
	ListAvailable(ctx context.Context, vetID, date string) ([]model.TimeSlot, error)
	// ListRange returns every slot of vetID with from <= date <= to.
	ListRange(ctx context.Context, vetID, from, to string) ([]model.TimeSlot, error)
	// Reserve returns model.ErrSlotUnavailable when no unreserved slot matches.
	Reserve(ctx context.Context, key model.SlotKey) (model.TimeSlot, error)
	// Release reports whether a reserved slot was flipped back.
	Release(ctx context.Context, key model.SlotKey) (bool, error)
}
