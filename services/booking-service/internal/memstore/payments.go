package memstore

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (s *Store) RecordPayment(_ context.Context, rec model.PaymentRecord) error {
	s.payMu.Lock()
	defer s.payMu.Unlock()
	s.payments = append(s.payments, rec)
	return nil
}

func (s *Store) ListPayments(_ context.Context, appointmentID string) ([]model.PaymentRecord, error) {
	s.payMu.Lock()
	defer s.payMu.Unlock()
	var out []model.PaymentRecord
	for _, p := range s.payments {
		if p.AppointmentID == appointmentID {
			out = append(out, p)
		}
	}
	return out, nil
}
