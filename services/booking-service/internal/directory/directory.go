// Package directory resolves caller profiles and pet ownership. Both are owned
// by external systems; this service only reads them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

type Profiles interface {
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

type Pets interface {
	Pet(ctx context.Context, petID string) (model.Pet, error)
}

// RequireCaller rejects anonymous callers.
func RequireCaller(callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return model.ErrNotAuthenticated
	}
	return nil
}

// RequireRole loads the caller's profile and checks its role. A caller without
// a profile is treated as not holding the role.
func RequireRole(ctx context.Context, profiles Profiles, callerID string, role model.Role) (model.Profile, error) {
	if err := RequireCaller(callerID); err != nil {
		return model.Profile{}, err
	}
	p, err := profiles.Profile(ctx, callerID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, fmt.Errorf("caller has no profile: %w", model.ErrUnauthorized)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if p.Role != role {
		return model.Profile{}, fmt.Errorf("caller is not a %s: %w", role, model.ErrUnauthorized)
	}
	return p, nil
}

// RequirePetOwner checks that petID exists and belongs to callerID.
func RequirePetOwner(ctx context.Context, pets Pets, callerID, petID string) (model.Pet, error) {
	if err := RequireCaller(callerID); err != nil {
		return model.Pet{}, err
	}
	pet, err := pets.Pet(ctx, petID)
	if err != nil {
		return model.Pet{}, fmt.Errorf("load pet: %w", err)
	}
	if pet.OwnerID != callerID {
		return model.Pet{}, fmt.Errorf("pet %s is not owned by caller: %w", petID, model.ErrUnauthorized)
	}
	return pet, nil
}
