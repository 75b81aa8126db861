// Package directory reads the external user/course directory. This service
// consumes it; it never writes. Enrollment is implicit: every active student
// counts for every active course.
package directory

import (
	"context"
	"fmt"
)

// Student is an external identity with the contact fields alerting needs.
type Student struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Course is external course metadata. Threshold, when set, overrides the
// global compliance threshold for this course.
type Course struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	FacultyID *string  `json:"faculty_id,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Active    bool     `json:"active"`
}

// NotFoundError reports an unknown or inactive entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Directory supplies the roster and course metadata.
type Directory interface {
	// Course returns course metadata, *NotFoundError when unknown.
	Course(ctx context.Context, id string) (Course, error)
	// ActiveStudents returns the roster of all active students.
	ActiveStudents(ctx context.Context) ([]Student, error)
}
