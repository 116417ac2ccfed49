package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/internal/writeback"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// ErrUnexpectedPass is attached to a known-failing scenario that passed:
// the defect is probably fixed and the marker is stale.
var ErrUnexpectedPass = errors.New("passed while marked known-failing")

// Verifier is the part of the protocol the driver needs.
type Verifier interface {
	VerifyScalar(ctx context.Context, file types.TestFile, prop types.Property) (*writeback.Observation, error)
	VerifyTagRelation(ctx context.Context, file types.TestFile) (*writeback.Observation, error)
}

// Driver runs scenarios sequentially against a Verifier.
type Driver struct {
	verifier Verifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewDriver creates a Driver. A nil logger disables logging.
func NewDriver(v Verifier, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{verifier: v, logger: logger, now: time.Now}
}

// Run executes every scenario in order and returns the report. Known
// failing scenarios are run like any other. Once a collaborator is found
// down, or ctx is done, the remaining scenarios are not attempted and are
// reported as skipped with the same cause.
func (d *Driver) Run(ctx context.Context, scenarios []Scenario) *Report {
	report := &Report{RunID: newRunID(), StartedAt: d.now()}
	d.logger.Info("starting run", zap.String("run_id", report.RunID), zap.Int("scenarios", len(scenarios)))

	var halt error
	for _, s := range scenarios {
		if halt == nil && ctx.Err() != nil {
			halt = ctx.Err()
		}
		if halt != nil {
			report.Outcomes = append(report.Outcomes, d.skip(s, halt))
			continue
		}

		out := d.RunOne(ctx, s)
		report.Outcomes = append(report.Outcomes, out)
		if errors.Is(out.Err, types.ErrCollaboratorDown) {
			halt = out.Err
		}
	}

	report.FinishedAt = d.now()
	report.Summary = Summarize(report.Outcomes)
	d.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Bool("ok", report.OK()),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("known_failures", report.Summary.KnownFailures),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

// RunOne executes a single scenario and classifies its result.
func (d *Driver) RunOne(ctx context.Context, s Scenario) Outcome {
	log := d.logger.With(zap.String("scenario", s.ID))
	log.Debug("running scenario", zap.String("file", s.File.URI), zap.String("subject", s.Subject()))

	start := d.now()
	var (
		obs *writeback.Observation
		err error
	)
	switch s.Kind {
	case KindScalar:
		obs, err = d.verifier.VerifyScalar(ctx, s.File, s.Property)
	case KindTag:
		obs, err = d.verifier.VerifyTagRelation(ctx, s.File)
	default:
		err = fmt.Errorf("scenario %s: unknown kind %q", s.ID, s.Kind)
	}

	out := Outcome{
		ScenarioID:  s.ID,
		Subject:     s.Subject(),
		File:        s.File.Name,
		Expected:    s.Expected,
		Verdict:     Classify(s.Expected, err),
		Observation: obs,
		Err:         err,
		Duration:    d.now().Sub(start),
	}
	if obs != nil {
		out.CleanupErr = obs.CleanupErr
	}
	if out.Verdict == types.VerdictUnexpectedPass {
		out.Err = fmt.Errorf("%w: %s", ErrUnexpectedPass, s.Expected.DefectID)
	}

	d.logOutcome(log, out)
	return out
}

// Classify maps a protocol result to a verdict. Only assertion mismatches
// are downgraded for known-failing scenarios; transport faults are errors
// regardless of the expectation.
func Classify(expected types.ExpectedOutcome, err error) types.Verdict {
	switch {
	case err == nil && expected.IsKnownFailing():
		return types.VerdictUnexpectedPass
	case err == nil:
		return types.VerdictPass
	case errors.Is(err, types.ErrAssertionMismatch) && expected.IsKnownFailing():
		return types.VerdictKnownFailure
	case errors.Is(err, types.ErrAssertionMismatch):
		return types.VerdictFail
	default:
		return types.VerdictError
	}
}

func (d *Driver) skip(s Scenario, cause error) Outcome {
	out := Outcome{
		ScenarioID: s.ID,
		Subject:    s.Subject(),
		File:       s.File.Name,
		Expected:   s.Expected,
		Verdict:    types.VerdictSkipped,
		Err:        fmt.Errorf("not run: %w", cause),
	}
	d.logOutcome(d.logger.With(zap.String("scenario", s.ID)), out)
	return out
}

func (d *Driver) logOutcome(log *zap.Logger, out Outcome) {
	fields := []zap.Field{
		zap.String("verdict", string(out.Verdict)),
		zap.Duration("duration", out.Duration),
	}
	if out.Expected.IsKnownFailing() {
		fields = append(fields, zap.String("defect", out.Expected.DefectID))
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}

	switch out.Verdict {
	case types.VerdictPass:
		log.Info("scenario passed", fields...)
	case types.VerdictKnownFailure:
		log.Warn("scenario failed as expected", fields...)
	default:
		log.Error("scenario did not pass", fields...)
	}
	if out.CleanupErr != nil {
		log.Error("scenario left state behind", zap.Error(out.CleanupErr))
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
