package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/layout"
	"github.com/specialistvlad/formulagrid/internal/resolver"
)

// DefaultStepTimeout bounds a step when Options.StepTimeout is zero.
const DefaultStepTimeout = 30 * time.Minute

// Options configures an Executor.
type Options struct {
	// Workers is the maximum number of packages built at once. Zero means
	// runtime.NumCPU(); one selects the sequential mode.
	Workers int
	// StepTimeout bounds every single step.
	StepTimeout time.Duration
	// Layout supplies the install locations placeholders expand to.
	Layout layout.Layout
	// BuildRoot holds one working directory per package,
	// <BuildRoot>/<name>-<version>, containing the unpacked source.
	BuildRoot string
	// RunTests runs each formula's test steps after a successful install.
	RunTests bool
}

// Executor builds resolved plans through a StepRunner.
type Executor struct {
	runner StepRunner
	opts   Options
}

// New creates an Executor. Zero-valued options are replaced by defaults.
func New(runner StepRunner, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	return &Executor{runner: runner, opts: opts}
}

// Workers returns the effective pool size.
func (e *Executor) Workers() int {
	return e.opts.Workers
}

// WorkDir is the working directory of one package version.
func (e *Executor) WorkDir(name, version string) string {
	return filepath.Join(e.opts.BuildRoot, fmt.Sprintf("%s-%s", name, version))
}

// Build runs every package of the plan and returns one result per entry, in
// plan order. env is the base environment of every step; per-step variables
// declared in a formula take precedence over it.
func (e *Executor) Build(ctx context.Context, plan *resolver.Plan, env map[string]string) []BuildResult {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🚀 Starting build.", "packages", plan.Len(), "workers", e.opts.Workers)

	var results []BuildResult
	if e.opts.Workers == 1 || plan.Len() <= 1 {
		results = e.buildSequential(ctx, plan, env)
	} else {
		results = e.buildParallel(ctx, plan, env)
	}

	logger.Info("🏁 Build finished.", "failed", AnyFailed(results))
	return results
}

// buildSequential walks the plan in order on the calling goroutine.
func (e *Executor) buildSequential(ctx context.Context, plan *resolver.Plan, env map[string]string) []BuildResult {
	logger := ctxlog.FromContext(ctx)
	results := make([]BuildResult, plan.Len())
	// blocked maps a package to the failed package that blocks it.
	blocked := make(map[string]string)

	for i, f := range plan.Formulae {
		if ctx.Err() != nil {
			results[i] = canceledResult(f.Name, f.Version, -1, ctx.Err())
			continue
		}
		if cause, ok := blocked[f.Name]; ok {
			logger.Warn("Skipping formula due to upstream failure.", "formula", f.Name, "dependency", cause)
			results[i] = skippedResult(f.Name, f.Version, cause)
			continue
		}

		results[i] = e.buildOne(ctx, f, env)
		if results[i].OK() {
			continue
		}

		descendants, err := plan.Graph.Descendants(f.Name)
		if err != nil {
			logger.Error("Failed to get dependents of failed formula.", "formula", f.Name, "error", err)
			continue
		}
		for _, d := range descendants {
			if _, ok := blocked[d]; !ok {
				blocked[d] = f.Name
			}
		}
	}
	return results
}

func skippedResult(name, version, cause string) BuildResult {
	return BuildResult{
		Name:       name,
		Version:    version,
		Status:     Skipped,
		FailedStep: -1,
		BlockedBy:  cause,
		Err:        &DependencyFailedError{Package: name, Dependency: cause},
	}
}

func canceledResult(name, version string, step int, err error) BuildResult {
	return BuildResult{
		Name:       name,
		Version:    version,
		Status:     Canceled,
		Phase:      PhaseInstall,
		FailedStep: step,
		Err:        err,
	}
}
