package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

const notificationColumns = `id, user_id, type, title, message, data, read, read_at, created_at`

func scanNotification(row pgx.Row) (model.Notification, error) {
	var notification model.Notification
	var dataJSON []byte
	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&dataJSON,
		&notification.Read,
		&notification.ReadAt,
		&notification.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &notification.Data); err != nil {
			return model.Notification{}, err
		}
	}
	return notification, nil
}

func (s *Store) CreateNotification(ctx context.Context, notification model.Notification) error {
	data := notification.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, notification.ID, notification.UserID, notification.Type, notification.Title, notification.Message, dataJSON, notification.CreatedAt)
	return err
}

func (s *Store) CreateNotifications(ctx context.Context, notifications []model.Notification) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, notification := range notifications {
		data := notification.Data
		if data == nil {
			data = map[string]any{}
		}
		dataJSON, err := json.Marshal(data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		`, notification.ID, notification.UserID, notification.Type, notification.Title, notification.Message, dataJSON, notification.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListNotifications filters by "unread" or by type tag; any other filter
// value returns everything.
func (s *Store) ListNotifications(ctx context.Context, userID, filter string) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}
	switch filter {
	case "unread":
		query += ` AND read = FALSE`
	case "order", "wallet", "system":
		query += ` AND type = $2`
		args = append(args, filter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, notificationID, userID string) (model.Notification, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = $1
		WHERE id = $2 AND user_id = $3
		RETURNING `+notificationColumns+`
	`, time.Now().UTC(), notificationID, userID)
	return scanNotification(row)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = $1
		WHERE user_id = $2 AND read = FALSE
	`, time.Now().UTC(), userID)
	return err
}

func (s *Store) DeleteNotification(ctx context.Context, notificationID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) GetNotificationSettings(ctx context.Context, userID string) (map[string]bool, error) {
	var settingsJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT settings FROM notification_settings WHERE user_id = $1`, userID).Scan(&settingsJSON)
	if err != nil {
		return nil, err
	}
	var settings map[string]bool
	if err := json.Unmarshal(settingsJSON, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) UpsertNotificationSettings(ctx context.Context, userID string, settings map[string]bool) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_settings (user_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`, userID, settingsJSON, time.Now().UTC())
	return err
}

// ListUserIDsByRole returns all user ids, or only those with the given role.
func (s *Store) ListUserIDsByRole(ctx context.Context, role string) ([]string, error) {
	query := `SELECT id FROM users`
	var args []any
	if role != "" && role != "all" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
