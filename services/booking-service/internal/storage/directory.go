package storage

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (r *Repository) Profile(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, display_name, role FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.DisplayName, &role)
	if IsNotFound(err) {
		return model.Profile{}, model.ErrNotFound
	}
	p.Role = model.Role(role)
	return p, err
}

func (r *Repository) Pet(ctx context.Context, petID string) (model.Pet, error) {
	var p model.Pet
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, species FROM pets WHERE id = $1
	`, petID).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species)
	if IsNotFound(err) {
		return model.Pet{}, model.ErrNotFound
	}
	return p, err
}
