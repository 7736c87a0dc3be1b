package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (s *Store) Profile(_ context.Context, userID string) (model.Profile, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}

func (s *Store) Pet(_ context.Context, petID string) (model.Pet, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	p, ok := s.pets[petID]
	if !ok {
		return model.Pet{}, model.ErrNotFound
	}
	return p, nil
}

func (s *Store) PutProfile(p model.Profile) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *Store) PutPet(p model.Pet) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	s.pets[p.ID] = p
}

// Seed is the JSON document accepted by LoadSeed.
type Seed struct {
	Profiles []model.Profile `json:"profiles"`
	Pets     []model.Pet     `json:"pets"`
}

// LoadSeed fills the directory from a JSON document.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, p := range seed.Profiles {
		s.PutProfile(p)
	}
	for _, p := range seed.Pets {
		s.PutPet(p)
	}
	return nil
}
