package steprunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/executor"
)

const (
	// DefaultOutputLimit is how much trailing output is kept per step.
	DefaultOutputLimit = 64 * 1024
	// waitDelay bounds how long Wait blocks on open pipes after a kill.
	waitDelay = 2 * time.Second
)

// Options configures a Runner.
type Options struct {
	// PTY attaches the step to a pseudo-terminal instead of pipes.
	PTY bool
	// OutputLimit caps the captured output; zero means DefaultOutputLimit.
	OutputLimit int
}

// Runner executes steps with os/exec.
type Runner struct {
	opts Options
}

var _ executor.StepRunner = (*Runner)(nil)

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.OutputLimit <= 0 {
		opts.OutputLimit = DefaultOutputLimit
	}
	return &Runner{opts: opts}
}

// Run starts the step, waits for it, and reports its exit status. The
// working directory is created if it does not exist yet.
func (r *Runner) Run(ctx context.Context, req executor.StepRequest) (executor.StepOutcome, error) {
	logger := ctxlog.FromContext(ctx)

	if req.Dir != "" {
		if err := os.MkdirAll(req.Dir, 0o755); err != nil {
			return executor.StepOutcome{}, fmt.Errorf("failed to create working directory %s: %w", req.Dir, err)
		}
	}

	stepCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(stepCtx, req.Executable, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}

	out := newTailBuffer(r.opts.OutputLimit)
	start := time.Now()
	var runErr error
	if r.opts.PTY {
		runErr = runPTY(cmd, out)
	} else {
		setProcGroup(cmd)
		cmd.Stdout = out
		cmd.Stderr = out
		runErr = cmd.Run()
	}
	output := out.Bytes()
	logger.Debug("Step process exited.", "executable", req.Executable, "duration", time.Since(start), "truncated", out.Truncated(), "error", runErr)

	switch {
	case ctx.Err() != nil:
		return executor.StepOutcome{Output: output}, ctx.Err()
	case stepCtx.Err() != nil:
		return executor.StepOutcome{Output: output}, &executor.TimeoutError{
			Package: req.Package,
			Index:   req.Index,
			Timeout: req.Timeout,
			Output:  output,
		}
	case runErr == nil:
		return executor.StepOutcome{Output: output}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		status := exitErr.ExitCode()
		if status == -1 {
			// Killed by a signal.
			status = 1
		}
		return executor.StepOutcome{ExitStatus: status, Output: output}, nil
	}
	return executor.StepOutcome{Output: output}, fmt.Errorf("failed to start %s: %w", req.Executable, runErr)
}
