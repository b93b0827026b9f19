package executor

import (
	"fmt"
	"strings"
	"time"
)

// Status is the final state of one package in a build.
type Status int

const (
	// Succeeded means every step (and test step, when enabled) exited zero.
	Succeeded Status = iota
	// Failed means a step failed, timed out, or could not be started.
	Failed
	// Skipped means a dependency did not succeed, so nothing was run.
	Skipped
	// Canceled means the build was canceled before the package finished.
	Canceled
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Phase distinguishes install steps from post-install test steps.
type Phase string

const (
	PhaseInstall Phase = "install"
	PhaseTest    Phase = "test"
)

// BuildResult is the outcome of one plan entry.
type BuildResult struct {
	Name    string
	Version string
	Status  Status
	// Phase and FailedStep locate the failing step; FailedStep is -1 when
	// no step failed.
	Phase      Phase
	FailedStep int
	// Output is the captured output of the failing step.
	Output []byte
	Err    error
	// BlockedBy names the failed package that caused a skip.
	BlockedBy string
	Duration  time.Duration
}

// OK reports whether the package built successfully.
func (r BuildResult) OK() bool {
	return r.Status == Succeeded
}

// AnyFailed reports whether any result is not a success.
func AnyFailed(results []BuildResult) bool {
	for _, r := range results {
		if !r.OK() {
			return true
		}
	}
	return false
}

// FailureSummary aggregates every unsuccessful result of a build.
type FailureSummary struct {
	Total    int
	Failures []BuildResult
}

func (e *FailureSummary) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, r := range e.Failures {
		switch r.Status {
		case Failed:
			parts = append(parts, fmt.Sprintf("%s (%s step %d: %v)", r.Name, r.Phase, r.FailedStep, r.Err))
		case Skipped:
			parts = append(parts, fmt.Sprintf("%s (skipped, %s failed)", r.Name, r.BlockedBy))
		default:
			parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, r.Status))
		}
	}
	return fmt.Sprintf("%d of %d packages did not build: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying errors so callers can errors.As into a
// StepFailure or TimeoutError.
func (e *FailureSummary) Unwrap() []error {
	var errs []error
	for _, r := range e.Failures {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Summary returns nil when every package succeeded and a *FailureSummary
// otherwise.
func Summary(results []BuildResult) error {
	var failures []BuildResult
	for _, r := range results {
		if !r.OK() {
			failures = append(failures, r)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &FailureSummary{Total: len(results), Failures: failures}
}
