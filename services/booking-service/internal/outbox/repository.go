package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/vetbook/libs/db"
)

// Repository is the Postgres outbox.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes evt inside the caller's transaction.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, evt.Traceparent, evt.Tracestate)
	return err
}

func (r *Repository) InsertAll(ctx context.Context, tx pgx.Tx, events []Event) error {
	for _, evt := range events {
		if err := r.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("insert outbox event %s: %w", evt.EventType, err)
		}
	}
	return nil
}

func (r *Repository) Claim(ctx context.Context, limit int, fn func(context.Context, []Record) ([]int64, error)) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		records, err := r.fetchUndelivered(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		done, fnErr := fn(ctx, records)
		if err := r.markDelivered(ctx, tx, done); err != nil {
			return err
		}
		if fnErr != nil && len(done) > 0 {
			// Keep the progress made before the failing record.
			if err := tx.Commit(ctx); err != nil {
				return err
			}
		}
		return fnErr
	})
}

func (r *Repository) fetchUndelivered(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.Seq, &rcd.ID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) markDelivered(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
