// Package alert turns compliance violations into at-most-once notifications.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attendtrack/internal/compliance"
	"attendtrack/internal/directory"
	"attendtrack/internal/ledger"
)

// Notifier delivers an alert outside the system. Transport, formatting and
// retry policy live behind this boundary; the engine only sees the binary
// outcome.
type Notifier interface {
	Send(ctx context.Context, contactEmail, studentName, courseName string, percentage, threshold float64) error
}

// Outcome is the result of one dispatch decision.
type Outcome int

const (
	// OutcomeSent means the notifier succeeded and an AlertRecord was written.
	OutcomeSent Outcome = iota
	// OutcomeSkippedDuplicate means this (student, course, window) was
	// already alerted; the notifier was not called.
	OutcomeSkippedDuplicate
	// OutcomeFailed means the notifier failed; no AlertRecord was written so
	// a later run can retry.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is the idempotency and audit row for one delivered alert. At most
// one exists per (student, course, window key).
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	WindowKey string    `json:"window_key"`
	SentAt    time.Time `json:"sent_at"`
}

// DispatchError wraps a notifier transport failure. It is isolated per
// student; orchestrator runs continue past it.
type DispatchError struct {
	StudentID string
	CourseID  string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch for student %s course %s: %v", e.StudentID, e.CourseID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RecordStore persists alert idempotency records. InsertIfAbsent must be
// atomic: concurrent inserts for the same key yield exactly one row.
type RecordStore interface {
	Exists(ctx context.Context, studentID, courseID, windowKey string) (bool, error)
	InsertIfAbsent(ctx context.Context, rec Record) (bool, error)
}

// FeedStore persists the in-app notification feed. Optional.
type FeedStore interface {
	InsertNotification(ctx context.Context, n Notification) error
}

// Notification is an in-app feed entry created alongside a sent alert.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationTypeAttendanceAlert marks feed entries created by dispatch.
const NotificationTypeAttendanceAlert = "attendance_alert"

// Dispatcher guards the Notifier with an idempotency record so a window is
// alerted at most once per student and course.
type Dispatcher struct {
	store    RecordStore
	notifier Notifier
	feed     FeedStore
}

// NewDispatcher creates a dispatcher. feed may be nil.
func NewDispatcher(store RecordStore, notifier Notifier, feed FeedStore) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier, feed: feed}
}

// Dispatch decides and delivers one alert.
//
// Returned errors are either *DispatchError (notifier failure, isolated) or
// store failures (fatal to the current operation). Outcome is always set.
func (d *Dispatcher) Dispatch(ctx context.Context, student directory.Student, course directory.Course, w ledger.Window, snap compliance.Snapshot, threshold float64) (Outcome, error) {
	key := w.Key()

	exists, err := d.store.Exists(ctx, student.ID, course.ID, key)
	if err != nil {
		return OutcomeFailed, err
	}
	if exists {
		observeDispatch(OutcomeSkippedDuplicate)
		return OutcomeSkippedDuplicate, nil
	}

	if err := d.notifier.Send(ctx, student.Email, student.FullName, course.Name, snap.Percentage(), threshold); err != nil {
		// No record written: a future run must be able to retry.
		observeDispatch(OutcomeFailed)
		return OutcomeFailed, &DispatchError{StudentID: student.ID, CourseID: course.ID, Err: err}
	}

	inserted, err := d.store.InsertIfAbsent(ctx, Record{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		CourseID:  course.ID,
		WindowKey: key,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return OutcomeFailed, err
	}
	if !inserted {
		// A concurrent run recorded this window first.
		observeDispatch(OutcomeSkippedDuplicate)
		return OutcomeSkippedDuplicate, nil
	}

	if d.feed != nil {
		n := Notification{
			ID:     uuid.NewString(),
			UserID: student.ID,
			Title:  "Low Attendance Alert",
			Message: fmt.Sprintf("Your attendance for %s is %.2f%% (below %.0f%%)",
				course.Name, snap.Percentage(), threshold),
			Type:      NotificationTypeAttendanceAlert,
			CreatedAt: time.Now().UTC(),
		}
		// The alert itself went out; the feed entry is best effort.
		_ = d.feed.InsertNotification(ctx, n)
	}

	observeDispatch(OutcomeSent)
	return OutcomeSent, nil
}
