package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"attendtrack/internal/auth"
)

// Store is the persistence boundary the service writes through.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	UpsertBatch(ctx context.Context, recs []Record) error
	ListWindow(ctx context.Context, studentID, courseID string, w Window) ([]Record, error)
}

// AlertTrigger re-evaluates compliance for a course after a write. The
// ledger only signals; the alerting pass itself lives elsewhere.
type AlertTrigger interface {
	CourseWritten(ctx context.Context, courseID string)
}

// Service validates and records attendance facts.
type Service struct {
	store   Store
	trigger AlertTrigger
	log     *logrus.Logger
}

// NewService creates a service. trigger may be nil when no alerting pass
// should follow writes (e.g. backfill tooling).
func NewService(store Store, trigger AlertTrigger, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, trigger: trigger, log: log}
}

// RecordAttendance upserts one attendance fact. A later write for the same
// (student, course, date) replaces the status; nothing is duplicated.
func (s *Service) RecordAttendance(ctx context.Context, ident auth.Identity, studentID, courseID string, day time.Time, status Status) error {
	if studentID == "" {
		return &ValidationError{Field: "student_id", Reason: "required"}
	}
	if courseID == "" {
		return &ValidationError{Field: "course_id", Reason: "required"}
	}
	if day.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be Present or Absent"}
	}

	rec := Record{
		StudentID:  studentID,
		CourseID:   courseID,
		Date:       DateOnly(day),
		Status:     status,
		RecordedBy: ident.UserID,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return err
	}
	s.afterWrite(ctx, courseID)
	return nil
}

// RecordBatch assigns every student in marks a definite status for the day:
// Present when mapped to true, Absent otherwise. Students not in the map are
// untouched. The whole batch commits or none of it does.
func (s *Service) RecordBatch(ctx context.Context, ident auth.Identity, courseID string, day time.Time, marks map[string]bool) error {
	if courseID == "" {
		return &ValidationError{Field: "course_id", Reason: "required"}
	}
	if day.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if len(marks) == 0 {
		return &ValidationError{Field: "marks", Reason: "at least one student required"}
	}

	date := DateOnly(day)
	recs := make([]Record, 0, len(marks))
	for studentID, present := range marks {
		if studentID == "" {
			return &ValidationError{Field: "marks", Reason: "empty student id"}
		}
		status := StatusAbsent
		if present {
			status = StatusPresent
		}
		recs = append(recs, Record{
			StudentID:  studentID,
			CourseID:   courseID,
			Date:       date,
			Status:     status,
			RecordedBy: ident.UserID,
		})
	}
	if err := s.store.UpsertBatch(ctx, recs); err != nil {
		return err
	}
	s.afterWrite(ctx, courseID)
	return nil
}

// RecordsForWindow returns a student's records in the window, oldest first.
func (s *Service) RecordsForWindow(ctx context.Context, studentID, courseID string, w Window) ([]Record, error) {
	return s.store.ListWindow(ctx, studentID, courseID, w)
}

func (s *Service) afterWrite(ctx context.Context, courseID string) {
	if s.trigger == nil {
		return
	}
	s.log.WithField("course_id", courseID).Debug("attendance written, re-evaluating compliance")
	s.trigger.CourseWritten(ctx, courseID)
}
