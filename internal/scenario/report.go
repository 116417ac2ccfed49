package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/wbverify/internal/writeback"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// Outcome is the classified result of one scenario.
type Outcome struct {
	ScenarioID  string
	Subject     string
	File        string
	Expected    types.ExpectedOutcome
	Verdict     types.Verdict
	Observation *writeback.Observation
	Err         error
	CleanupErr  error
	Duration    time.Duration
}

// Summary counts outcomes by verdict. CleanupFailures counts scenarios
// whose post-condition cleanup failed, whatever their verdict.
type Summary struct {
	Total            int `json:"total"`
	Passed           int `json:"passed"`
	Failed           int `json:"failed"`
	Errors           int `json:"errors"`
	KnownFailures    int `json:"known_failures"`
	UnexpectedPasses int `json:"unexpected_passes"`
	Skipped          int `json:"skipped"`
	CleanupFailures  int `json:"cleanup_failures"`
}

// Summarize counts outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Verdict {
		case types.VerdictPass:
			s.Passed++
		case types.VerdictFail:
			s.Failed++
		case types.VerdictError:
			s.Errors++
		case types.VerdictKnownFailure:
			s.KnownFailures++
		case types.VerdictUnexpectedPass:
			s.UnexpectedPasses++
		case types.VerdictSkipped:
			s.Skipped++
		}
		if o.CleanupErr != nil {
			s.CleanupFailures++
		}
	}
	return s
}

// Report is the result of a Driver run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	Summary    Summary
}

// OK reports whether no outcome breaks the run. Known failures and cleanup
// failures do not; the latter are reported separately.
func (r *Report) OK() bool {
	for _, o := range r.Outcomes {
		if o.Verdict.Breaking() {
			return false
		}
	}
	return true
}

// Outcome returns the outcome for a scenario ID.
func (r *Report) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.ScenarioID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

var verdictMarks = map[types.Verdict]string{
	types.VerdictPass:           "✓",
	types.VerdictFail:           "✗",
	types.VerdictError:          "!",
	types.VerdictKnownFailure:   "x",
	types.VerdictUnexpectedPass: "?",
	types.VerdictSkipped:        "-",
}

// FormatText renders the report for a terminal.
func (r *Report) FormatText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Writeback verification run %s\n", r.RunID)
	b.WriteString(strings.Repeat("=", 36+len(r.RunID)) + "\n\n")

	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "%s %-22s %-16s %-16s %s\n",
			verdictMarks[o.Verdict], o.ScenarioID, o.Subject, o.Verdict, o.Duration.Round(time.Millisecond))
		if o.Expected.IsKnownFailing() {
			fmt.Fprintf(&b, "    defect: %s\n", o.Expected.DefectID)
		}
		if o.Err != nil {
			fmt.Fprintf(&b, "    %v\n", o.Err)
		}
		if o.CleanupErr != nil {
			fmt.Fprintf(&b, "    CLEANUP FAILED: %v\n", o.CleanupErr)
		}
	}

	s := r.Summary
	fmt.Fprintf(&b, "\n%d scenarios: %d passed, %d failed, %d errors, %d known failures, %d unexpected passes, %d skipped\n",
		s.Total, s.Passed, s.Failed, s.Errors, s.KnownFailures, s.UnexpectedPasses, s.Skipped)
	if s.CleanupFailures > 0 {
		fmt.Fprintf(&b, "%d scenarios failed to clean up; later results may be contaminated\n", s.CleanupFailures)
	}
	if r.OK() {
		b.WriteString("RESULT: OK\n")
	} else {
		b.WriteString("RESULT: FAILED\n")
	}
	return b.String()
}

type outcomeJSON struct {
	Scenario   string   `json:"scenario"`
	Subject    string   `json:"subject"`
	File       string   `json:"file"`
	Verdict    string   `json:"verdict"`
	Defect     string   `json:"defect,omitempty"`
	Key        string   `json:"key,omitempty"`
	Want       string   `json:"want,omitempty"`
	Got        []string `json:"got,omitempty"`
	Error      string   `json:"error,omitempty"`
	CleanupErr string   `json:"cleanup_error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type reportJSON struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	OK         bool          `json:"ok"`
	Summary    Summary       `json:"summary"`
	Outcomes   []outcomeJSON `json:"outcomes"`
}

// MarshalJSON renders errors as strings and flattens observations.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		OK:         r.OK(),
		Summary:    r.Summary,
		Outcomes:   make([]outcomeJSON, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		oj := outcomeJSON{
			Scenario:   o.ScenarioID,
			Subject:    o.Subject,
			File:       o.File,
			Verdict:    string(o.Verdict),
			Defect:     o.Expected.DefectID,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Observation != nil {
			oj.Key = o.Observation.Key
			oj.Want = o.Observation.Want
			oj.Got = o.Observation.Got
		}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		if o.CleanupErr != nil {
			oj.CleanupErr = o.CleanupErr.Error()
		}
		out.Outcomes = append(out.Outcomes, oj)
	}
	return json.Marshal(out)
}
