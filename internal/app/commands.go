package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/executor"
	"github.com/specialistvlad/formulagrid/internal/hcl"
	"github.com/specialistvlad/formulagrid/internal/layout"
	"github.com/specialistvlad/formulagrid/internal/receipts"
	"github.com/specialistvlad/formulagrid/internal/report"
	"github.com/specialistvlad/formulagrid/internal/resolver"
	"github.com/specialistvlad/formulagrid/internal/service"
)

// Service output formats.
const (
	FormatPlist = "plist"
	FormatYAML  = "yaml"
)

// Install resolves the requested packages, builds the plan and prints a
// report. It returns a *executor.FailureSummary when any package did not
// build.
func (a *App) Install(ctx context.Context, names []string) error {
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(a.withLogger(ctx), "run_id", runID)
	logger.Debug("Install started.", "requested", names)

	set, err := a.loadSet(ctx)
	if err != nil {
		return err
	}
	plan, err := resolver.ResolveAll(ctx, set, names...)
	if err != nil {
		return wrapStage(ErrResolve, err)
	}
	logger.Info("📦 Plan resolved.", "packages", plan.Len(), "order", plan.Names())

	state := &healthState{RunID: runID, Packages: plan.Len(), StartedAt: time.Now().UTC()}
	a.startHealthcheckServer(ctx, state)
	defer a.closeHealthcheckServer(ctx)

	l := layout.New(a.config.Prefix)
	exec := executor.New(a.runner, executor.Options{
		Workers:     a.config.Workers,
		StepTimeout: a.config.StepTimeout,
		Layout:      l,
		BuildRoot:   a.config.BuildRoot,
		RunTests:    a.config.RunTests,
	})
	results := exec.Build(ctx, plan, a.buildEnv())
	state.finish()

	if err := report.Write(a.outW, results, report.Options{Color: a.config.Color}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := a.recordReceipts(ctx, runID, plan, results, l); err != nil {
		return err
	}
	return executor.Summary(results)
}

// receiptStore opens the receipts database, or returns the in-memory store
// of this App when no database path is configured.
func (a *App) receiptStore(ctx context.Context) (receipts.Store, error) {
	if a.config.ReceiptsPath == "" {
		return a.session, nil
	}
	return receipts.Open(ctx, a.config.ReceiptsPath)
}

func (a *App) recordReceipts(ctx context.Context, runID string, plan *resolver.Plan, results []executor.BuildResult, l layout.Layout) error {
	store, err := a.receiptStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := receipts.Record(ctx, store, runID, plan, results, l)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Receipts recorded.", "count", n, "path", a.config.ReceiptsPath)
	return nil
}

// Plan prints the build order of the requested packages without running
// anything.
func (a *App) Plan(ctx context.Context, names []string) error {
	ctx = a.withLogger(ctx)
	set, err := a.loadSet(ctx)
	if err != nil {
		return err
	}
	plan, err := resolver.ResolveAll(ctx, set, names...)
	if err != nil {
		return wrapStage(ErrResolve, err)
	}

	var sb strings.Builder
	for i, f := range plan.Formulae {
		fmt.Fprintf(&sb, "%d. %s %s", i+1, f.Name, f.Version)
		if deps := f.Dependencies(); len(deps) > 0 {
			fmt.Fprintf(&sb, " (after %s)", strings.Join(deps, ", "))
		}
		sb.WriteByte('\n')
	}
	_, err = fmt.Fprint(a.outW, sb.String())
	return err
}

// Service renders the service definition of one package in the given
// format.
func (a *App) Service(ctx context.Context, name, format string) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	set, err := a.loadSet(ctx)
	if err != nil {
		return err
	}
	f, err := resolver.Lookup(set, name)
	if err != nil {
		return wrapStage(ErrResolve, err)
	}
	d, err := service.Render(f, layout.New(a.config.Prefix).Bindings(f.Name, f.Version))
	if err != nil {
		return wrapStage(ErrResolve, err)
	}

	switch format {
	case FormatPlist, "":
		err = service.EncodePlist(a.outW, d)
	case FormatYAML:
		err = service.EncodeYAML(a.outW, d)
	default:
		return fmt.Errorf("unknown service format %q", format)
	}
	if err != nil {
		return err
	}
	if d.Manual != "" {
		logger.Info("Service can also be run manually.", "command", d.Manual)
	}
	return nil
}

// Fmt prints every formula file in canonical form, each preceded by a
// comment naming its source file.
func (a *App) Fmt(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	files, err := a.loader.Files(a.config.FormulaePath)
	if err != nil {
		return wrapStage(ErrLoad, err)
	}

	for i, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return wrapStage(ErrLoad, err)
		}
		formulae, err := a.loader.LoadSource(ctx, file, src)
		if err != nil {
			return wrapStage(ErrLoad, err)
		}
		if i > 0 {
			fmt.Fprintln(a.outW)
		}
		fmt.Fprintf(a.outW, "# %s\n", file)
		if _, err := a.outW.Write(hcl.Write(formulae...)); err != nil {
			return err
		}
	}
	return nil
}

// List prints every known formula, marking the installed ones.
func (a *App) List(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	set, err := a.loadSet(ctx)
	if err != nil {
		return err
	}

	installed, err := a.installed(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, name := range set.Names() {
		f := set[name]
		fmt.Fprintf(&sb, "%s %s", f.Name, f.Version)
		if r, ok := installed[name]; ok {
			fmt.Fprintf(&sb, " [installed %s]", r.Version)
		}
		if f.Desc != "" {
			fmt.Fprintf(&sb, " - %s", f.Desc)
		}
		sb.WriteByte('\n')
	}
	_, err = fmt.Fprint(a.outW, sb.String())
	return err
}

func (a *App) installed(ctx context.Context) (map[string]receipts.Receipt, error) {
	out := make(map[string]receipts.Receipt)
	if a.config.ReceiptsPath != "" {
		if _, err := os.Stat(a.config.ReceiptsPath); errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
	}
	store, err := a.receiptStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	list, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		out[r.Name] = r
	}
	return out, nil
}
