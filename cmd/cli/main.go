package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/formulagrid/internal/app"
	"github.com/specialistvlad/formulagrid/internal/cli"
)

// main is the entrypoint for the formulagrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string, opts ...app.Option) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a := app.NewApp(outW, errW, inv.Config, opts...)
	switch inv.Command {
	case cli.CmdInstall:
		return a.Install(ctx, inv.Packages)
	case cli.CmdPlan:
		return a.Plan(ctx, inv.Packages)
	case cli.CmdService:
		return a.Service(ctx, inv.Packages[0], inv.Format)
	case cli.CmdFmt:
		return a.Fmt(ctx)
	case cli.CmdList:
		return a.List(ctx)
	}
	return &cli.ExitError{Code: cli.ExitUsage, Message: fmt.Sprintf("unknown command %q", inv.Command)}
}
