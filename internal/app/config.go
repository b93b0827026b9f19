package app

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/formulagrid/internal/config"
	"github.com/specialistvlad/formulagrid/internal/executor"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FormulaePath string // .hcl file or directory of them
	Prefix       string // install tree root
	BuildRoot    string // per-package working directories
	ReceiptsPath string // empty disables receipts

	Workers     int
	StepTimeout time.Duration
	RunTests    bool
	PTY         bool
	// Env is added to the environment of every build step.
	Env map[string]string

	LogFormat       string
	LogLevel        string
	Color           bool
	HealthcheckPort int
}

// DefaultConfig returns the built-in defaults flags and the config file
// are layered on.
func DefaultConfig() Config {
	return Config{
		FormulaePath: "Formula",
		Prefix:       "/usr/local",
		BuildRoot:    filepath.Join(os.TempDir(), "formulagrid"),
		StepTimeout:  executor.DefaultStepTimeout,
		LogFormat:    "text",
		LogLevel:     "info",
	}
}

// ApplyFile copies every field set in f onto c.
func (c *Config) ApplyFile(f *config.File) {
	setIf(&c.FormulaePath, f.Formulae)
	setIf(&c.Prefix, f.Prefix)
	setIf(&c.BuildRoot, f.BuildRoot)
	setIf(&c.ReceiptsPath, f.Receipts)
	setIf(&c.Workers, f.Workers)
	if f.StepTimeout != nil {
		c.StepTimeout = time.Duration(*f.StepTimeout)
	}
	setIf(&c.RunTests, f.Test)
	setIf(&c.PTY, f.PTY)
	setIf(&c.Color, f.Color)
	setIf(&c.HealthcheckPort, f.HealthcheckPort)
	setIf(&c.LogLevel, f.Log.Level)
	setIf(&c.LogFormat, f.Log.Format)
	if len(f.Env) > 0 {
		if c.Env == nil {
			c.Env = make(map[string]string, len(f.Env))
		}
		maps.Copy(c.Env, f.Env)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if cfg.FormulaePath == "" {
		errs = append(errs, errors.New("formulae path is a required configuration field and cannot be empty"))
	}
	if cfg.Prefix == "" {
		errs = append(errs, errors.New("prefix cannot be empty"))
	}
	if cfg.BuildRoot == "" {
		errs = append(errs, errors.New("build root cannot be empty"))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", cfg.Workers))
	}
	if cfg.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("step timeout must not be negative, got %s", cfg.StepTimeout))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort))
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	cfg.Env = maps.Clone(cfg.Env)
	return &cfg, nil
}
