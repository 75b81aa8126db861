package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snap(total, present int) Snapshot {
	return Snapshot{StudentID: "s1", CourseID: "c1", TotalClasses: total, PresentClasses: present}
}

func TestEvaluateNoData(t *testing.T) {
	// No recorded classes means unmeasured, never 0%.
	assert.Equal(t, VerdictNoData, Evaluate(snap(0, 0), 75))
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	// Exactly at threshold is compliant: 3/4 = 75.0.
	assert.Equal(t, VerdictCompliant, Evaluate(snap(4, 3), 75))

	// Just below: 7499/10000 = 74.99.
	assert.Equal(t, VerdictViolation, Evaluate(snap(10000, 7499), 75))

	assert.Equal(t, VerdictCompliant, Evaluate(snap(10, 10), 75))
}

func TestEvaluateZeroPresentIsViolation(t *testing.T) {
	// Zero attended out of some total is a violation, not excluded.
	assert.Equal(t, VerdictViolation, Evaluate(snap(5, 0), 75))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "NoData", VerdictNoData.String())
	assert.Equal(t, "Compliant", VerdictCompliant.String())
	assert.Equal(t, "Violation", VerdictViolation.String())
}
