// Package memstore keeps every booking-service record in process memory. It
// backs STORAGE_BACKEND=memory and the package tests, and honours the same
// contracts as the Postgres storage.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

type Store struct {
	slotMu sync.Mutex
	slots  map[model.SlotKey]*model.TimeSlot

	apptMu sync.Mutex
	appts  map[string]model.Appointment
	locks  map[string]*sync.Mutex

	payMu    sync.Mutex
	payments []model.PaymentRecord

	noteMu sync.Mutex
	notes  map[string]model.Notification
	order  []string

	outMu     sync.Mutex
	claimMu   sync.Mutex
	events    []outbox.Record
	delivered map[int64]bool
	seq       int64

	dirMu    sync.RWMutex
	profiles map[string]model.Profile
	pets     map[string]model.Pet

	now   func() time.Time
	newID func() string
}

func New() *Store {
	return &Store{
		slots:     map[model.SlotKey]*model.TimeSlot{},
		appts:     map[string]model.Appointment{},
		locks:     map[string]*sync.Mutex{},
		notes:     map[string]model.Notification{},
		delivered: map[int64]bool{},
		profiles:  map[string]model.Profile{},
		pets:      map[string]model.Pet{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}
