package types

// ExpectedOutcome records whether a scenario is expected to pass or is
// known to fail because of a tracked defect. The zero value is Normal.
type ExpectedOutcome struct {
	DefectID string
}

// Normal expects the scenario to pass.
func Normal() ExpectedOutcome { return ExpectedOutcome{} }

// KnownFailing expects an assertion failure caused by defectID.
func KnownFailing(defectID string) ExpectedOutcome {
	return ExpectedOutcome{DefectID: defectID}
}

// IsKnownFailing reports whether a defect is attached.
func (e ExpectedOutcome) IsKnownFailing() bool { return e.DefectID != "" }

func (e ExpectedOutcome) String() string {
	if e.IsKnownFailing() {
		return "known-failing(" + e.DefectID + ")"
	}
	return "normal"
}

// Verdict is the classified result of one scenario.
type Verdict string

// Verdicts.
const (
	VerdictPass           Verdict = "pass"
	VerdictFail           Verdict = "fail"
	VerdictError          Verdict = "error"
	VerdictKnownFailure   Verdict = "known-failure"
	VerdictUnexpectedPass Verdict = "unexpected-pass"
	VerdictSkipped        Verdict = "skipped"
)

// Breaking reports whether the verdict makes a run unsuccessful.
func (v Verdict) Breaking() bool {
	switch v {
	case VerdictPass, VerdictKnownFailure:
		return false
	default:
		return true
	}
}
