// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package formula

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/specialistvlad/formulagrid/internal/layout"
)

// SHA256Len is the length of a hex-encoded SHA-256 digest.
const SHA256Len = 64

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidationError describes a formula that breaks one of the model's invariants.
type ValidationError struct {
	Formula string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Formula == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("formula %q: %s: %s", e.Formula, e.Field, e.Reason)
}

// IsSHA256 reports whether s is a lower-case hex SHA-256 digest.
func IsSHA256(s string) bool {
	return hexDigest.MatchString(s)
}

// Validate checks the invariants every loaded formula must satisfy. All
// violations are joined into a single error.
func (f *Formula) Validate() error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &ValidationError{Formula: f.Name, Field: field, Reason: reason})
	}

	if strings.TrimSpace(f.Name) == "" {
		fail("name", "must not be empty")
	}
	if strings.TrimSpace(f.Version) == "" {
		fail("version", "must not be empty")
	}
	if strings.TrimSpace(f.Source.URL) == "" {
		fail("source.url", "must not be empty")
	}
	if f.Source.SHA256 != "" && !IsSHA256(f.Source.SHA256) {
		fail("source.sha256", fmt.Sprintf("must be %d lower-case hex characters", SHA256Len))
	}
	if f.Bottle != nil {
		for _, platform := range slices.Sorted(maps.Keys(f.Bottle.Checksums)) {
			if !IsSHA256(f.Bottle.Checksums[platform]) {
				fail("bottle.sha256."+platform, fmt.Sprintf("must be %d lower-case hex characters", SHA256Len))
			}
		}
	}
	for _, dep := range f.Dependencies() {
		if dep == f.Name {
			fail("dependencies", "formula cannot depend on itself")
		}
	}
	for _, c := range f.Conflicts {
		if c.Name == f.Name {
			fail("conflict", "formula cannot conflict with itself")
		}
	}
	template := func(field string, values ...string) {
		for _, v := range values {
			if err := layout.CheckTemplate(v); err != nil {
				fail(field, err.Error())
				return
			}
		}
	}
	steps := func(block string, list []Step) {
		for i, s := range list {
			field := fmt.Sprintf("%s.step[%d]", block, i)
			if strings.TrimSpace(s.Executable) == "" {
				fail(field, "executable must not be empty")
			}
			template(field, s.Executable)
			template(field, s.Args...)
			for _, k := range slices.Sorted(maps.Keys(s.Env)) {
				template(field, s.Env[k])
			}
		}
	}
	steps("install", f.Steps)
	steps("test", f.Test)
	if s := f.Service; s != nil {
		if len(s.ProgramArguments) == 0 {
			fail("service.program_arguments", "must name at least the program to run")
		}
		template("service", append([]string{s.WorkingDir, s.StdoutPath, s.StderrPath, s.Manual}, s.ProgramArguments...)...)
	}

	return errors.Join(errs...)
}
