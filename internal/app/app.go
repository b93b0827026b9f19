package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/executor"
	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/hcl"
	"github.com/specialistvlad/formulagrid/internal/receipts"
	"github.com/specialistvlad/formulagrid/internal/steprunner"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  *hcl.Loader
	runner  executor.StepRunner
	environ func() []string
	// session holds receipts when no database path is configured.
	session *receipts.MemoryStore

	httpServer *http.Server
	health     *healthState
}

// Option customizes an App.
type Option func(*App)

// WithStepRunner replaces the process-based step runner.
func WithStepRunner(r executor.StepRunner) Option {
	return func(a *App) { a.runner = r }
}

// WithEnviron replaces os.Environ as the base environment of build steps.
func WithEnviron(fn func() []string) Option {
	return func(a *App) { a.environ = fn }
}

// NewApp is the constructor for the main application. Command output goes to
// outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	a := &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  hcl.NewLoader(),
		environ: os.Environ,
		session: receipts.NewMemory(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = steprunner.New(steprunner.Options{PTY: cfg.PTY})
	}
	logger.Debug("App configured.", "formulae", cfg.FormulaePath, "prefix", cfg.Prefix, "workers", cfg.Workers)
	return a
}

// withLogger attaches the app logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// loadSet reads every formula under the configured path.
func (a *App) loadSet(ctx context.Context) (formula.Set, error) {
	set, err := a.loader.Load(ctx, a.config.FormulaePath)
	if err != nil {
		return nil, wrapStage(ErrLoad, err)
	}
	ctxlog.FromContext(ctx).Debug("Formulae loaded.", "count", len(set))
	return set, nil
}

// buildEnv is the base environment of every step: the process environment
// overlaid with the configured variables.
func (a *App) buildEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range a.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	for k, v := range a.config.Env {
		env[k] = v
	}
	return env
}

func wrapStage(stage, err error) error {
	return fmt.Errorf("%w: %w", stage, err)
}
