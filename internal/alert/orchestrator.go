package alert

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"attendtrack/internal/compliance"
	"attendtrack/internal/directory"
	"attendtrack/internal/ledger"
)

// SnapshotSource computes per-student compliance snapshots.
type SnapshotSource interface {
	Snapshot(ctx context.Context, studentID, courseID string, w ledger.Window) (compliance.Snapshot, error)
}

// Sender decides and delivers one alert.
type Sender interface {
	Dispatch(ctx context.Context, student directory.Student, course directory.Course, w ledger.Window, snap compliance.Snapshot, threshold float64) (Outcome, error)
}

// Summary is the only externally observable result of an alerting pass.
type Summary struct {
	Evaluated        int `json:"evaluated"`
	Violations       int `json:"violations"`
	Alerted          int `json:"alerted"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Failed           int `json:"failed"`
}

// Orchestrator runs one alerting pass over a course's roster.
type Orchestrator struct {
	dir       directory.Directory
	snapshots SnapshotSource
	sender    Sender
	threshold float64
	log       *logrus.Logger
}

// NewOrchestrator creates an orchestrator. threshold is the global policy;
// a course-level override takes precedence per run.
func NewOrchestrator(dir directory.Directory, snapshots SnapshotSource, sender Sender, threshold float64, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{
		dir:       dir,
		snapshots: snapshots,
		sender:    sender,
		threshold: threshold,
		log:       log,
	}
}

// Run evaluates every active student for the course and window and dispatches
// an alert per violation. One student's dispatch failure never aborts the
// rest; each dispatch is its own committed unit, so cancellation between
// students leaves already-sent alerts in place.
func (o *Orchestrator) Run(ctx context.Context, courseID string, w ledger.Window) (Summary, error) {
	var sum Summary

	course, err := o.dir.Course(ctx, courseID)
	if err != nil {
		return sum, err
	}
	if !course.Active {
		return sum, &directory.NotFoundError{Kind: "course", ID: courseID}
	}

	threshold := o.threshold
	if course.Threshold != nil {
		threshold = *course.Threshold
	}

	students, err := o.dir.ActiveStudents(ctx)
	if err != nil {
		return sum, err
	}

	for _, student := range students {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		snap, err := o.snapshots.Snapshot(ctx, student.ID, courseID, w)
		if err != nil {
			return sum, err
		}
		sum.Evaluated++

		verdict := compliance.Evaluate(snap, threshold)
		if verdict != compliance.VerdictViolation {
			continue
		}
		sum.Violations++

		outcome, err := o.sender.Dispatch(ctx, student, course, w, snap, threshold)
		switch outcome {
		case OutcomeSent:
			sum.Alerted++
		case OutcomeSkippedDuplicate:
			sum.SkippedDuplicate++
		case OutcomeFailed:
			sum.Failed++
			var de *DispatchError
			if err != nil && !errors.As(err, &de) {
				// Store failure, not a transport failure: fatal.
				return sum, err
			}
			o.log.WithFields(logrus.Fields{
				"student_id": student.ID,
				"course_id":  courseID,
				"window":     w.Key(),
			}).WithError(err).Warn("alert dispatch failed")
		}
	}

	o.log.WithFields(logrus.Fields{
		"course_id":         courseID,
		"window":            w.Key(),
		"evaluated":         sum.Evaluated,
		"violations":        sum.Violations,
		"alerted":           sum.Alerted,
		"skipped_duplicate": sum.SkippedDuplicate,
		"failed":            sum.Failed,
	}).Info("alerting pass finished")

	return sum, nil
}
