package storage

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func (r *Repository) RecordPayment(ctx context.Context, rec model.PaymentRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_records
			(id, appointment_id, payer_id, amount_cents, method, provider_payment_id, status, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.AppointmentID, rec.PayerID, rec.AmountCents, rec.Method,
		nullIfEmpty(rec.ProviderPaymentID), string(rec.Status), nullIfEmpty(rec.FailureReason), rec.CreatedAt)
	return err
}

func (r *Repository) ListPayments(ctx context.Context, appointmentID string) ([]model.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, payer_id, amount_cents, method,
			COALESCE(provider_payment_id, ''), status, COALESCE(failure_reason, ''), created_at
		FROM payment_records
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PaymentRecord
	for rows.Next() {
		var p model.PaymentRecord
		var status string
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.PayerID, &p.AmountCents, &p.Method,
			&p.ProviderPaymentID, &status, &p.FailureReason, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Status = model.PaymentStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}
