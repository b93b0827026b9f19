package executor

import (
	"context"
	"fmt"
	"time"
)

// StepRequest describes one external command to run.
type StepRequest struct {
	// Package and Index identify the step for logging.
	Package string
	Index   int

	Dir        string
	Executable string
	Args       []string
	// Env is the complete environment as sorted KEY=VALUE pairs.
	Env     []string
	Timeout time.Duration
}

// StepOutcome is what a runner observed for one command.
type StepOutcome struct {
	ExitStatus int
	Output     []byte
}

// StepRunner executes a single build command. Implementations return a
// *TimeoutError when the command exceeds req.Timeout, and a plain error when
// the command could not be started at all. A command that ran and exited
// non-zero is not an error: it is reported through ExitStatus.
type StepRunner interface {
	Run(ctx context.Context, req StepRequest) (StepOutcome, error)
}

// StepRunnerFunc adapts a function to the StepRunner interface.
type StepRunnerFunc func(ctx context.Context, req StepRequest) (StepOutcome, error)

// Run calls f.
func (f StepRunnerFunc) Run(ctx context.Context, req StepRequest) (StepOutcome, error) {
	return f(ctx, req)
}

// TimeoutError reports a step that did not finish within its time limit.
type TimeoutError struct {
	Package string
	Index   int
	Timeout time.Duration
	Output  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %d of %q timed out after %s", e.Index, e.Package, e.Timeout)
}

// StepFailure reports a step that exited with a non-zero status.
type StepFailure struct {
	Package    string
	Phase      Phase
	Index      int
	ExitStatus int
	Output     []byte
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("%s step %d of %q failed with exit status %d", e.Phase, e.Index, e.Package, e.ExitStatus)
}

// DependencyFailedError is recorded for packages that were never attempted
// because a dependency did not succeed.
type DependencyFailedError struct {
	Package    string
	Dependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("%q not built: dependency %q did not succeed", e.Package, e.Dependency)
}
