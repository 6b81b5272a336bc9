package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

const notificationColumns = `id, user_id, type, message, metadata, read, created_at`

// ListNotificationsByUser returns a user's notifications newest first.
func (r *Repository) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Metadata, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flips a single notification owned by the user.
// Notifications of other users are indistinguishable from missing ones.
func (r *Repository) MarkNotificationRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 RETURNING ` + notificationColumns
	var n domain.Notification
	err := r.pool.QueryRow(ctx, query, notificationID, userID).
		Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Metadata, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
