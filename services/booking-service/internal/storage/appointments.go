package storage

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

const appointmentColumns = `id, owner_id, veterinarian_id, pet_id, appointment_date::text, start_time, end_time,
	appointment_type, severity, status, notes, deposit_cents, deposit_paid,
	COALESCE(payment_id, ''), COALESCE(veterinarian_notes, ''), created_at, updated_at`

func (r *Repository) Create(ctx context.Context, appt model.Appointment, notices []model.Notification) error {
	events, err := outbox.NotificationEvents(ctx, notices)
	if err != nil {
		return err
	}
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, owner_id, veterinarian_id, pet_id, appointment_date, start_time, end_time,
				 appointment_type, severity, status, notes, deposit_cents, deposit_paid, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, appt.ID, appt.OwnerID, appt.VeterinarianID, appt.PetID, appt.Date, appt.StartTime, appt.EndTime,
			string(appt.Type), string(appt.Severity), string(appt.Status), appt.Notes,
			appt.DepositCents, appt.DepositPaid, appt.CreatedAt, appt.UpdatedAt)
		if IsConflict(err) {
			return fmt.Errorf("slot %s already booked: %w", appt.Slot(), model.ErrSlotUnavailable)
		}
		if err != nil {
			return err
		}
		return r.outbox.InsertAll(ctx, tx, events)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, err
}

func (r *Repository) Update(ctx context.Context, id string, fn func(model.Appointment) (ledger.Outcome, error)) (model.Appointment, error) {
	var updated model.Appointment
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		current, err := scanAppointment(tx.QueryRow(ctx,
			`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
		if IsNotFound(err) {
			return model.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock appointment: %w", err)
		}

		out, err := fn(current)
		if err != nil {
			return err
		}
		a := out.Appointment

		if _, err := tx.Exec(ctx, `
			UPDATE appointments
			SET status = $2,
				deposit_paid = $3,
				payment_id = $4,
				veterinarian_notes = $5,
				updated_at = $6
			WHERE id = $1
		`, id, string(a.Status), a.DepositPaid, nullIfEmpty(a.PaymentID), nullIfEmpty(a.VeterinarianNotes), a.UpdatedAt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		if out.Release != nil {
			if _, err := releaseSlot(ctx, tx, *out.Release); err != nil {
				return err
			}
		}

		events, err := outbox.NotificationEvents(ctx, out.Notices)
		if err != nil {
			return err
		}
		if err := r.outbox.InsertAll(ctx, tx, events); err != nil {
			return err
		}
		updated = a
		return nil
	})
	return updated, err
}

func (r *Repository) List(ctx context.Context, f ledger.ListFilter) ([]model.Appointment, error) {
	query, args, err := r.appointmentQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) appointmentQuery(f ledger.ListFilter) (string, []any, error) {
	var where []goqu.Expression
	if f.OwnerID != "" {
		where = append(where, goqu.C("owner_id").Eq(f.OwnerID))
	}
	if f.VeterinarianID != "" {
		where = append(where, goqu.C("veterinarian_id").Eq(f.VeterinarianID))
	}
	if f.Status != "" {
		where = append(where, goqu.C("status").Eq(string(f.Status)))
	}

	ds := r.qb.From("appointments").
		Select(goqu.L(appointmentColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build appointment query: %w", err)
	}
	return query, args, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var typ, severity, status string
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.VeterinarianID, &a.PetID, &a.Date, &a.StartTime, &a.EndTime,
		&typ, &severity, &status, &a.Notes, &a.DepositCents, &a.DepositPaid,
		&a.PaymentID, &a.VeterinarianNotes, &a.CreatedAt, &a.UpdatedAt,
	)
	a.Type = model.AppointmentType(typ)
	a.Severity = model.Severity(severity)
	a.Status = model.AppointmentStatus(status)
	return a, err
}
