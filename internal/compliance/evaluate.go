package compliance

// Verdict is the tri-state outcome of evaluating a snapshot.
type Verdict int

const (
	// VerdictNoData means no classes were recorded in the window. The
	// student is unmeasured, not failing, and must never be alerted.
	VerdictNoData Verdict = iota
	// VerdictCompliant means attendance meets or exceeds the threshold.
	VerdictCompliant
	// VerdictViolation means attendance is strictly below the threshold.
	VerdictViolation
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictNoData:
		return "NoData"
	case VerdictCompliant:
		return "Compliant"
	case VerdictViolation:
		return "Violation"
	default:
		return "Unknown"
	}
}

// Evaluate classifies a snapshot against a percentage threshold.
// Comparison is strict: percentage exactly equal to the threshold is
// Compliant. Zero percent with recorded classes is still a Violation.
func Evaluate(s Snapshot, thresholdPercent float64) Verdict {
	if !s.HasData() {
		return VerdictNoData
	}
	if s.Percentage() < thresholdPercent {
		return VerdictViolation
	}
	return VerdictCompliant
}
