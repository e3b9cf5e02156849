package notify

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"courier/internal/platform/tracing"
	dErrors "courier/pkg/domain-errors"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageEnrich   Stage = "enrich"
	StageDispatch Stage = "dispatch"
)

// Outcome tags a StageResult.
type Outcome string

const (
	OutcomeOK Outcome = "ok"
	// OutcomeDegraded means the stage finished with some per-item failures
	// that its policy tolerates.
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// StageResult is the tagged outcome of one stage. Err is set only when
// Outcome is OutcomeFailed.
type StageResult struct {
	Stage    Stage
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

func (r StageResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// stageFunc runs a stage body. It reports whether any tolerated per-item
// failure happened, or a fatal error.
type stageFunc func(ctx context.Context) (degraded bool, err error)

// runStage runs fn under its own deadline and span and records the outcome.
// A deadline error returned by fn becomes CodeUpstreamUnavailable wrapping
// CodeTimeout.
func (s *Service) runStage(ctx context.Context, stage Stage, timeout time.Duration, fn stageFunc) StageResult {
	ctx, span := tracing.StartSpan(ctx, "notify."+string(stage),
		attribute.String("notify.stage", string(stage)),
	)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	degraded, err := fn(ctx)
	res := StageResult{Stage: stage, Outcome: OutcomeOK, Duration: time.Since(start)}

	switch {
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = classify(stage, err)
	case degraded:
		res.Outcome = OutcomeDegraded
	}

	tracing.End(span, res.Err)
	s.metrics.ObserveStage(string(stage), string(res.Outcome), res.Duration)
	return res
}

func classify(stage Stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(
			dErrors.Wrap(err, dErrors.CodeTimeout, "stage deadline exceeded"),
			dErrors.CodeUpstreamUnavailable,
			string(stage)+" did not complete in time",
		)
	}
	return err
}
