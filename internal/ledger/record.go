package ledger

import (
	"fmt"
	"time"
)

// Status is the attendance status for one student on one class day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// Valid reports whether the status is in the allowed set.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one attendance fact. Exactly one record exists per
// (student, course, date); later writes replace the status.
type Record struct {
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
	RecordedBy string    `json:"recorded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidationError rejects bad input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
