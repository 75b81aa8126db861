package directory

import (
	"context"
	"database/sql"
	"errors"
)

// Repository reads the directory tables in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Course returns course metadata by id.
func (r *Repository) Course(ctx context.Context, id string) (Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, faculty_id, threshold, is_active
		FROM courses WHERE id = $1
	`, id)
	var c Course
	if err := row.Scan(&c.ID, &c.Name, &c.FacultyID, &c.Threshold, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, &NotFoundError{Kind: "course", ID: id}
		}
		return Course{}, err
	}
	return c, nil
}

// ActiveStudents returns all active students ordered by name.
func (r *Repository) ActiveStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, full_name
		FROM users
		WHERE role = 'student' AND is_active = TRUE
		ORDER BY full_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Email, &s.FullName); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
