package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/layout"
)

type stepPhase struct {
	phase Phase
	steps []formula.Step
}

// buildOne runs the install steps of one formula, then its test steps when
// enabled.
func (e *Executor) buildOne(ctx context.Context, f *formula.Formula, env map[string]string) BuildResult {
	ctx, logger := ctxlog.With(ctx, "formula", f.Name, "version", f.Version)
	logger.Info("▶️ Building formula")
	start := time.Now()

	res := BuildResult{
		Name:       f.Name,
		Version:    f.Version,
		Status:     Succeeded,
		Phase:      PhaseInstall,
		FailedStep: -1,
	}
	bindings := e.opts.Layout.Bindings(f.Name, f.Version)
	dir := e.WorkDir(f.Name, f.Version)

	phases := []stepPhase{{PhaseInstall, f.Steps}}
	if e.opts.RunTests && len(f.Test) > 0 {
		phases = append(phases, stepPhase{PhaseTest, f.Test})
	}

	for _, p := range phases {
		res.Phase = p.phase
		if idx, output, err := e.runSteps(ctx, f.Name, p.phase, p.steps, bindings, dir, env); err != nil {
			res.FailedStep = idx
			res.Output = output
			res.Err = err
			res.Status = Failed
			if errors.Is(err, context.Canceled) {
				res.Status = Canceled
			}
			break
		}
	}
	if res.OK() {
		res.Phase = PhaseInstall
	}
	res.Duration = time.Since(start)

	if res.OK() {
		logger.Info("✅ Formula built", "duration", res.Duration)
	} else {
		logger.Error("Formula build did not succeed.", "status", res.Status, "phase", res.Phase, "step", res.FailedStep, "error", res.Err)
	}
	return res
}

// runSteps runs steps in order and stops at the first one that does not
// succeed, returning its index, captured output and error.
func (e *Executor) runSteps(ctx context.Context, pkg string, phase Phase, steps []formula.Step, bindings layout.Bindings, dir string, env map[string]string) (int, []byte, error) {
	logger := ctxlog.FromContext(ctx)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("Context canceled, not starting step.", "phase", phase, "step", i)
			return i, nil, err
		}

		req, err := e.request(pkg, i, step, bindings, dir, env)
		if err != nil {
			return i, nil, fmt.Errorf("%s step %d of %q: %w", phase, i, pkg, err)
		}

		logger.Debug("Running step.", "phase", phase, "step", i, "executable", req.Executable, "args", req.Args)
		outcome, err := e.runner.Run(ctx, req)
		if err != nil {
			var timeout *TimeoutError
			if errors.As(err, &timeout) {
				return i, timeout.Output, err
			}
			return i, outcome.Output, fmt.Errorf("%s step %d of %q: %w", phase, i, pkg, err)
		}
		if outcome.ExitStatus != 0 {
			return i, outcome.Output, &StepFailure{
				Package:    pkg,
				Phase:      phase,
				Index:      i,
				ExitStatus: outcome.ExitStatus,
				Output:     outcome.Output,
			}
		}
		logger.Debug("Step finished.", "phase", phase, "step", i)
	}
	return -1, nil, nil
}

// request expands placeholders of one step into a runnable request.
func (e *Executor) request(pkg string, idx int, step formula.Step, bindings layout.Bindings, dir string, base map[string]string) (StepRequest, error) {
	executable, err := bindings.Expand(step.Executable)
	if err != nil {
		return StepRequest{}, err
	}
	args, err := bindings.ExpandAll(step.Args)
	if err != nil {
		return StepRequest{}, err
	}

	merged := maps.Clone(base)
	if merged == nil {
		merged = make(map[string]string, len(step.Env))
	}
	for k, v := range step.Env {
		expanded, err := bindings.Expand(v)
		if err != nil {
			return StepRequest{}, err
		}
		merged[k] = expanded
	}

	return StepRequest{
		Package:    pkg,
		Index:      idx,
		Dir:        dir,
		Executable: executable,
		Args:       args,
		Env:        environ(merged),
		Timeout:    e.opts.StepTimeout,
	}, nil
}

// environ flattens an environment map into sorted KEY=VALUE pairs.
func environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
