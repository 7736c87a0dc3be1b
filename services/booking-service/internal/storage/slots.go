package storage

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const slotColumns = `id, veterinarian_id, slot_date::text, start_time, end_time, reserved, created_at`

func (r *Repository) Replace(ctx context.Context, vetID, date string, windows []model.SlotWindow) ([]model.TimeSlot, error) {
	var out []model.TimeSlot
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		// Serialize publishers of the same day.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, vetID+"/"+date); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM time_slots
			WHERE veterinarian_id = $1 AND slot_date = $2::date AND NOT reserved
		`, vetID, date); err != nil {
			return fmt.Errorf("delete unreserved slots: %w", err)
		}
		reserved, err := reservedWindows(ctx, tx, vetID, date)
		if err != nil {
			return err
		}

		free := availability.FreeWindows(windows, reserved)
		out = make([]model.TimeSlot, 0, len(free))
		for _, w := range free {
			slot, err := scanSlot(tx.QueryRow(ctx, `
				INSERT INTO time_slots (id, veterinarian_id, slot_date, start_time, end_time)
				VALUES ($1, $2, $3::date, $4, $5)
				ON CONFLICT (veterinarian_id, slot_date, start_time) DO NOTHING
				RETURNING `+slotColumns,
				newID(), vetID, date, w.StartTime, w.EndTime))
			if IsNotFound(err) {
				// A reserved slot already holds this start time.
				continue
			}
			if err != nil {
				return fmt.Errorf("insert slot %s: %w", w.StartTime, err)
			}
			out = append(out, slot)
		}
		return nil
	})
	return out, err
}

// reservedWindows reads what survived the delete; only reserved rows remain.
func reservedWindows(ctx context.Context, tx pgx.Tx, vetID, date string) ([]model.SlotWindow, error) {
	rows, err := tx.Query(ctx, `
		SELECT start_time, end_time FROM time_slots
		WHERE veterinarian_id = $1 AND slot_date = $2::date
	`, vetID, date)
	if err != nil {
		return nil, fmt.Errorf("load reserved slots: %w", err)
	}
	defer rows.Close()

	var out []model.SlotWindow
	for rows.Next() {
		var w model.SlotWindow
		if err := rows.Scan(&w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repository) ListAvailable(ctx context.Context, vetID, date string) ([]model.TimeSlot, error) {
	return r.listSlots(ctx, availableSlots(vetID, date)...)
}

func (r *Repository) ListRange(ctx context.Context, vetID, from, to string) ([]model.TimeSlot, error) {
	return r.listSlots(ctx, slotRange(vetID, from, to)...)
}

func availableSlots(vetID, date string) []goqu.Expression {
	return []goqu.Expression{
		goqu.C("veterinarian_id").Eq(vetID),
		goqu.L("slot_date = ?::date", date),
		goqu.C("reserved").IsFalse(),
	}
}

func slotRange(vetID, from, to string) []goqu.Expression {
	return []goqu.Expression{
		goqu.C("veterinarian_id").Eq(vetID),
		goqu.L("slot_date BETWEEN ?::date AND ?::date", from, to),
	}
}

// Reserve is a single conditional update; concurrent callers for the same key
// queue on the row lock and all but one see zero rows.
func (r *Repository) Reserve(ctx context.Context, key model.SlotKey) (model.TimeSlot, error) {
	slot, err := scanSlot(r.pool.QueryRow(ctx, `
		UPDATE time_slots
		SET reserved = true, updated_at = now()
		WHERE veterinarian_id = $1 AND slot_date = $2::date AND start_time = $3 AND NOT reserved
		RETURNING `+slotColumns,
		key.VeterinarianID, key.Date, key.StartTime))
	if IsNotFound(err) {
		return model.TimeSlot{}, model.ErrSlotUnavailable
	}
	if err != nil {
		return model.TimeSlot{}, fmt.Errorf("reserve slot: %w", err)
	}
	return slot, nil
}

func (r *Repository) Release(ctx context.Context, key model.SlotKey) (bool, error) {
	return releaseSlot(ctx, r.pool, key)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func releaseSlot(ctx context.Context, q execer, key model.SlotKey) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE time_slots
		SET reserved = false, updated_at = now()
		WHERE veterinarian_id = $1 AND slot_date = $2::date AND start_time = $3 AND reserved
	`, key.VeterinarianID, key.Date, key.StartTime)
	if err != nil {
		return false, fmt.Errorf("release slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) slotQuery(where ...goqu.Expression) (string, []any, error) {
	query, args, err := r.qb.From("time_slots").
		Select(goqu.L(slotColumns)).
		Where(where...).
		Order(goqu.C("slot_date").Asc(), goqu.C("start_time").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build slot query: %w", err)
	}
	return query, args, nil
}

func (r *Repository) listSlots(ctx context.Context, where ...goqu.Expression) ([]model.TimeSlot, error) {
	query, args, err := r.slotQuery(where...)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func scanSlot(row pgx.Row) (model.TimeSlot, error) {
	var s model.TimeSlot
	err := row.Scan(&s.ID, &s.VeterinarianID, &s.Date, &s.StartTime, &s.EndTime, &s.Reserved, &s.CreatedAt)
	return s, err
}
