package alert

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"attendtrack/internal/directory"
	"attendtrack/internal/ledger"
)

// Trigger runs a compliance pass for a course right after an attendance
// write, using the single globally configured window.
type Trigger struct {
	orch   *Orchestrator
	policy ledger.WindowPolicy
	log    *logrus.Logger
}

// NewTrigger creates a trigger.
func NewTrigger(orch *Orchestrator, policy ledger.WindowPolicy, log *logrus.Logger) *Trigger {
	if log == nil {
		log = logrus.New()
	}
	return &Trigger{orch: orch, policy: policy, log: log}
}

// CourseWritten implements ledger.AlertTrigger. Failures are logged, never
// surfaced: a broken alerting pass must not fail the attendance write that
// already committed.
func (t *Trigger) CourseWritten(ctx context.Context, courseID string) {
	w := t.policy.Current(time.Now())
	if _, err := t.orch.Run(ctx, courseID, w); err != nil {
		var nf *directory.NotFoundError
		entry := t.log.WithFields(logrus.Fields{"course_id": courseID, "window": w.Key()})
		if errors.As(err, &nf) {
			entry.Warn("alerting pass skipped: course unknown or inactive")
			return
		}
		entry.WithError(err).Error("alerting pass failed")
	}
}
