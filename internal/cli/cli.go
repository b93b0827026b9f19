package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/formulagrid/internal/app"
	"github.com/specialistvlad/formulagrid/internal/config"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitBuild      = 1
	ExitUsage      = 2
	ExitLoadFailed = 3
)

// Commands.
const (
	CmdInstall = "install"
	CmdPlan    = "plan"
	CmdService = "service"
	CmdFmt     = "fmt"
	CmdList    = "list"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Invocation is a parsed command line.
type Invocation struct {
	Config  *app.Config
	Command string
	// Packages are the positional arguments of the command.
	Packages []string
	// Format is the output format of the service command.
	Format string
}

const usage = `
formulagrid - Build packages from declarative formula files.

Usage:
  formulagrid [options] install <package>...
  formulagrid [options] plan <package>...
  formulagrid [options] service [-format plist|yaml] <package>
  formulagrid [options] fmt
  formulagrid [options] list

Options:
`

// Parse processes command-line arguments. It returns the parsed invocation,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("formulagrid", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	formulaeFlag := flagSet.String("formulae", defaults.FormulaePath, "Path to a formula file or a directory of .hcl formulae.")
	configFlag := flagSet.String("config", "", "Path to a YAML config file.")
	prefixFlag := flagSet.String("prefix", defaults.Prefix, "Root of the install tree.")
	buildRootFlag := flagSet.String("build-root", defaults.BuildRoot, "Directory holding per-package working directories.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Number of packages built at once. 0 uses every CPU, 1 builds sequentially.")
	stepTimeoutFlag := flagSet.Duration("step-timeout", defaults.StepTimeout, "Time limit of a single build step.")
	testFlag := flagSet.Bool("test", false, "Run each formula's test steps after installing it.")
	ptyFlag := flagSet.Bool("pty", false, "Run build steps on a pseudo-terminal.")
	receiptsFlag := flagSet.String("receipts", "", "Path of the install receipts database. Empty disables receipts.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	colorFlag := flagSet.Bool("color", false, "Color the build report.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server during install. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	// Defaults, then the config file, then flags given explicitly.
	cfg := defaults
	if *configFlag != "" {
		file, err := config.Load(*configFlag)
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		cfg.ApplyFile(file)
	}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "formulae":
			cfg.FormulaePath = *formulaeFlag
		case "prefix":
			cfg.Prefix = *prefixFlag
		case "build-root":
			cfg.BuildRoot = *buildRootFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "step-timeout":
			cfg.StepTimeout = *stepTimeoutFlag
		case "test":
			cfg.RunTests = *testFlag
		case "pty":
			cfg.PTY = *ptyFlag
		case "receipts":
			cfg.ReceiptsPath = *receiptsFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "color":
			cfg.Color = *colorFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		}
	})
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	inv, err := parseCommand(flagSet.Args(), output)
	if err != nil {
		return nil, false, err
	}
	inv.Config = validated

	slog.Debug("CLI parser finished successfully.", "command", inv.Command, "packages", inv.Packages)
	return inv, false, nil
}

func parseCommand(args []string, output io.Writer) (*Invocation, error) {
	inv := &Invocation{Command: args[0]}
	rest := args[1:]

	switch inv.Command {
	case CmdInstall, CmdPlan:
		if len(rest) == 0 {
			return nil, usageError("%s requires at least one package name", inv.Command)
		}
		inv.Packages = rest
	case CmdService:
		fs := flag.NewFlagSet("service", flag.ContinueOnError)
		fs.SetOutput(output)
		format := fs.String("format", app.FormatPlist, "Output format. Options: 'plist' or 'yaml'.")
		if err := fs.Parse(rest); err != nil {
			return nil, usageError("%s", err.Error())
		}
		if *format != app.FormatPlist && *format != app.FormatYAML {
			return nil, usageError("invalid service format %q: must be 'plist' or 'yaml'", *format)
		}
		if fs.NArg() != 1 {
			return nil, usageError("service requires exactly one package name")
		}
		inv.Format = *format
		inv.Packages = fs.Args()
	case CmdFmt, CmdList:
		if len(rest) != 0 {
			return nil, usageError("%s takes no arguments", inv.Command)
		}
	default:
		return nil, usageError("unknown command %q", inv.Command)
	}
	return inv, nil
}
