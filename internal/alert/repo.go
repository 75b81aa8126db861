package alert

import (
	"context"
	"database/sql"
)

// Repository persists alert records and the notification feed in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether an alert record exists for the dedup key.
func (r *Repository) Exists(ctx context.Context, studentID, courseID, windowKey string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alert_records
			WHERE student_id = $1 AND course_id = $2 AND window_key = $3
		)
	`, studentID, courseID, windowKey)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// InsertIfAbsent writes the record unless one already exists for the key.
// The unique constraint makes concurrent inserts race-safe; the loser sees
// false.
func (r *Repository) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_records (id, student_id, course_id, window_key, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id, window_key) DO NOTHING
	`, rec.ID, rec.StudentID, rec.CourseID, rec.WindowKey, rec.SentAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertNotification writes an in-app feed entry.
func (r *Repository) InsertNotification(ctx context.Context, n Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt)
	return err
}

// Notifications returns a user's feed, newest first.
func (r *Repository) Notifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// MarkNotificationRead marks one of the user's feed entries read. Returns
// false when no matching entry exists.
func (r *Repository) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
