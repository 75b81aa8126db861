// Package compliance derives attendance percentages and classifies them
// against a policy threshold. Everything here is computed on demand; nothing
// is persisted.
package compliance

import (
	"context"

	"attendtrack/internal/ledger"
)

// Snapshot is a student's derived attendance standing for one course and
// window. Percentage is undefined when TotalClasses is zero; callers must
// branch on HasData before using it.
type Snapshot struct {
	StudentID      string        `json:"student_id"`
	CourseID       string        `json:"course_id"`
	Window         ledger.Window `json:"window"`
	TotalClasses   int           `json:"total_classes"`
	PresentClasses int           `json:"present_classes"`
}

// HasData reports whether any classes were recorded in the window.
func (s Snapshot) HasData() bool {
	return s.TotalClasses > 0
}

// Percentage is present/total*100. Meaningless when HasData is false.
func (s Snapshot) Percentage() float64 {
	if s.TotalClasses == 0 {
		return 0
	}
	return float64(s.PresentClasses) / float64(s.TotalClasses) * 100
}

// CourseSummary aggregates attendance across all students of a course.
// Unlike the per-student Snapshot, an empty summary reports Rate 0: this is
// reporting output, not a compliance decision, so no-data exclusion does not
// apply here.
type CourseSummary struct {
	CourseID       string        `json:"course_id"`
	Window         ledger.Window `json:"window"`
	TotalRecords   int           `json:"total_records"`
	PresentRecords int           `json:"present_records"`
	AbsentRecords  int           `json:"absent_records"`
	Rate           float64       `json:"rate"`
}

// CountSource supplies attendance counts from the ledger.
type CountSource interface {
	CountWindow(ctx context.Context, studentID, courseID string, w ledger.Window) (total, present int, err error)
	CourseCounts(ctx context.Context, courseID string, w ledger.Window) (total, present int, err error)
}

// Aggregator computes snapshots and summaries from ledger counts.
type Aggregator struct {
	src CountSource
}

// NewAggregator creates an aggregator reading from the given source.
func NewAggregator(src CountSource) *Aggregator {
	return &Aggregator{src: src}
}

// Snapshot computes one student's standing for a course and window.
func (a *Aggregator) Snapshot(ctx context.Context, studentID, courseID string, w ledger.Window) (Snapshot, error) {
	total, present, err := a.src.CountWindow(ctx, studentID, courseID, w)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		StudentID:      studentID,
		CourseID:       courseID,
		Window:         w,
		TotalClasses:   total,
		PresentClasses: present,
	}, nil
}

// CourseSummary aggregates attendance across all students of a course.
func (a *Aggregator) CourseSummary(ctx context.Context, courseID string, w ledger.Window) (CourseSummary, error) {
	total, present, err := a.src.CourseCounts(ctx, courseID, w)
	if err != nil {
		return CourseSummary{}, err
	}
	sum := CourseSummary{
		CourseID:       courseID,
		Window:         w,
		TotalRecords:   total,
		PresentRecords: present,
		AbsentRecords:  total - present,
	}
	if total > 0 {
		sum.Rate = float64(present) / float64(total) * 100
	}
	return sum, nil
}
