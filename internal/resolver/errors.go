package resolver

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/formulagrid/internal/dag"
)

// CycleError carries the offending cycle as an ordered list of names.
type CycleError = dag.CycleError

// UnknownPackageError reports a requested name absent from the formula set.
type UnknownPackageError struct {
	Name string
	// Suggestions are close matches from the set, best first.
	Suggestions []string
}

func (e *UnknownPackageError) Error() string {
	msg := fmt.Sprintf("no formula named %q", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// MissingDependencyError reports a declared dependency with no formula.
type MissingDependencyError struct {
	Package    string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("formula %q depends on %q, which is not defined", e.Package, e.Dependency)
}

// ConflictError reports two packages in one plan that refuse to be installed
// together.
type ConflictError struct {
	Package  string
	Conflict string
	Because  string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("formula %q conflicts with %q", e.Package, e.Conflict)
	if e.Because != "" {
		msg += ": " + e.Because
	}
	return msg
}
