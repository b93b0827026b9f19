package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk run configuration.
type File struct {
	Formulae        *string   `yaml:"formulae"`
	Prefix          *string   `yaml:"prefix"`
	BuildRoot       *string   `yaml:"build_root"`
	Workers         *int      `yaml:"workers"`
	StepTimeout     *Duration `yaml:"step_timeout"`
	Test            *bool     `yaml:"test"`
	PTY             *bool     `yaml:"pty"`
	Receipts        *string   `yaml:"receipts"`
	Color           *bool     `yaml:"color"`
	HealthcheckPort *int      `yaml:"healthcheck_port"`
	Log             Log       `yaml:"log"`
	// Env is added to the environment of every build step.
	Env map[string]string `yaml:"env"`
}

// Log groups the logging settings.
type Log struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "1h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load reads and decodes the configuration file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return f, nil
}

// Decode reads a configuration document from r. An empty document yields
// an empty File.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}
