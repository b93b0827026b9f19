// Package service renders the daemon definition of an installed formula.
//
// Render is pure: it reads only the formula and the bindings passed in, so
// the same inputs always yield the same Descriptor and, through the
// encoders, byte-identical documents.
package service

import (
	"fmt"

	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/layout"
)

// LabelPrefix is prepended to the formula name to form the service label.
const LabelPrefix = "homebrew.mxcl."

// Descriptor is a rendered service definition.
type Descriptor struct {
	Label             string   `yaml:"label"`
	WorkingDirectory  string   `yaml:"working_directory,omitempty"`
	ProgramArguments  []string `yaml:"program_arguments"`
	StandardOutPath   string   `yaml:"stdout_path,omitempty"`
	StandardErrorPath string   `yaml:"stderr_path,omitempty"`
	RunAtLoad         bool     `yaml:"run_at_load"`
	KeepAlive         bool     `yaml:"keep_alive,omitempty"`
	// Manual is the expanded foreground command. It is not part of the
	// encoded document.
	Manual string `yaml:"-"`
}

// TemplateError reports a formula whose service cannot be rendered.
type TemplateError struct {
	Name   string
	Reason string
	Err    error
}

func (e *TemplateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service template of %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("service template of %q: %s", e.Name, e.Reason)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Label returns the service label of the named formula.
func Label(name string) string {
	return LabelPrefix + name
}

// Render substitutes bindings into the service template of f.
func Render(f *formula.Formula, bindings layout.Bindings) (*Descriptor, error) {
	if f.Service == nil {
		return nil, &TemplateError{Name: f.Name, Reason: "formula declares no service"}
	}
	tmpl := f.Service

	expand := func(field, s string) (string, error) {
		v, err := bindings.Expand(s)
		if err != nil {
			return "", &TemplateError{Name: f.Name, Reason: "cannot expand " + field, Err: err}
		}
		return v, nil
	}

	d := &Descriptor{
		Label:     Label(f.Name),
		RunAtLoad: tmpl.RunAtLoad,
		KeepAlive: tmpl.KeepAlive,
	}
	var err error
	if d.WorkingDirectory, err = expand("working_dir", tmpl.WorkingDir); err != nil {
		return nil, err
	}
	if d.StandardOutPath, err = expand("stdout_path", tmpl.StdoutPath); err != nil {
		return nil, err
	}
	if d.StandardErrorPath, err = expand("stderr_path", tmpl.StderrPath); err != nil {
		return nil, err
	}
	if d.Manual, err = expand("manual", tmpl.Manual); err != nil {
		return nil, err
	}
	if len(tmpl.ProgramArguments) == 0 {
		return nil, &TemplateError{Name: f.Name, Reason: "program_arguments is empty"}
	}
	d.ProgramArguments = make([]string, len(tmpl.ProgramArguments))
	for i, arg := range tmpl.ProgramArguments {
		if d.ProgramArguments[i], err = expand(fmt.Sprintf("program_arguments[%d]", i), arg); err != nil {
			return nil, err
		}
	}
	return d, nil
}
