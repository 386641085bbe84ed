package database

import (
	"context"
	"fmt"
	"time"

	"drivebook/internal/models"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (user_id, type, message, seen, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, n.UserID, n.Type, n.Message, n.Seen, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

// ListNotifications returns the latest notifications, newest first.
// userID == 0 returns notifications for all users (admin view).
func (db *DB) ListNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = models.DefaultNotificationLimit
	}

	query := `SELECT id, user_id, type, message, seen, created_at FROM notifications`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Seen, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsSeen flags all unseen notifications of a user.
func (db *DB) MarkNotificationsSeen(ctx context.Context, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET seen = 1 WHERE user_id = ? AND seen = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications seen: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
