package ledger

import (
	"context"
	"database/sql"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const upsertSQL = `
	INSERT INTO attendance_records (student_id, course_id, class_date, status, recorded_by)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (student_id, course_id, class_date) DO UPDATE SET
		status = EXCLUDED.status,
		recorded_by = EXCLUDED.recorded_by,
		updated_at = NOW()
`

// Upsert writes one record; an existing (student, course, date) row gets its
// status replaced.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, upsertSQL,
		rec.StudentID, rec.CourseID, rec.Date, rec.Status, rec.RecordedBy)
	return err
}

// UpsertBatch writes all records in one transaction, all-or-nothing.
func (r *Repository) UpsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, upsertSQL,
			rec.StudentID, rec.CourseID, rec.Date, rec.Status, rec.RecordedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListWindow returns a student's records inside the window, oldest first.
func (r *Repository) ListWindow(ctx context.Context, studentID, courseID string, w Window) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, course_id, class_date, status, COALESCE(recorded_by, ''), created_at, updated_at
		FROM attendance_records
		WHERE student_id = $1 AND course_id = $2 AND class_date BETWEEN $3 AND $4
		ORDER BY class_date ASC
	`, studentID, courseID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.StudentID, &rec.CourseID, &rec.Date, &rec.Status,
			&rec.RecordedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountWindow returns total and present record counts for one student.
func (r *Repository) CountWindow(ctx context.Context, studentID, courseID string, w Window) (total, present int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $5)
		FROM attendance_records
		WHERE student_id = $1 AND course_id = $2 AND class_date BETWEEN $3 AND $4
	`, studentID, courseID, w.Start, w.End, StatusPresent)
	err = row.Scan(&total, &present)
	return total, present, err
}

// CourseCounts returns total and present record counts across all students.
func (r *Repository) CourseCounts(ctx context.Context, courseID string, w Window) (total, present int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $4)
		FROM attendance_records
		WHERE course_id = $1 AND class_date BETWEEN $2 AND $3
	`, courseID, w.Start, w.End, StatusPresent)
	err = row.Scan(&total, &present)
	return total, present, err
}
