package store

import "context"

// schema is the dev/test bootstrap. The users and courses tables are owned
// by the external directory; they are created here only so a fresh local
// database is usable without that system. Production provisioning happens
// elsewhere.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS attendance_records (
		student_id  TEXT NOT NULL,
		course_id   TEXT NOT NULL,
		class_date  DATE NOT NULL,
		status      TEXT NOT NULL,
		recorded_by TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (student_id, course_id, class_date)
	)`,
	`CREATE TABLE IF NOT EXISTS alert_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		course_id  TEXT NOT NULL,
		window_key TEXT NOT NULL,
		sent_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (student_id, course_id, window_key)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		type       TEXT NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT UNIQUE NOT NULL,
		full_name  TEXT NOT NULL,
		role       TEXT NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id         TEXT PRIMARY KEY,
		name       TEXT UNIQUE NOT NULL,
		faculty_id TEXT,
		threshold  DOUBLE PRECISION,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables this service reads and writes.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
