package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const notificationColumns = `id, recipient_id, title, message, type, read, COALESCE(appointment_id, ''), created_at`

func (r *Repository) AppendNotification(ctx context.Context, n model.Notification) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, title, message, type, read, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.RecipientID, n.Title, n.Message, string(n.Type), n.Read, nullIfEmpty(n.AppointmentID), n.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetNotification(ctx context.Context, id string) (model.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Notification{}, model.ErrNotFound
	}
	return n, err
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	var typ string
	err := row.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &typ, &n.Read, &n.AppointmentID, &n.CreatedAt)
	n.Type = model.NotificationType(typ)
	return n, err
}
