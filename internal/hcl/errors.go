package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ParseError reports a formula file that cannot be turned into a valid model:
// bad syntax, a missing required field, or a value that breaks an invariant.
type ParseError struct {
	File    string
	Formula string
	Reason  string
	// Diags carries the HCL diagnostics when the failure came from the parser.
	Diags hcl.Diagnostics
	// Err carries the underlying validation error, if any.
	Err error
}

func (e *ParseError) Error() string {
	where := e.File
	if where == "" {
		where = "<source>"
	}
	if e.Formula != "" {
		where = fmt.Sprintf("%s: formula %q", where, e.Formula)
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("parse error in %s: %s: %v", where, e.Reason, e.Err)
	case e.Diags.HasErrors():
		return fmt.Sprintf("parse error in %s: %s: %s", where, e.Reason, e.Diags.Error())
	default:
		return fmt.Sprintf("parse error in %s: %s", where, e.Reason)
	}
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Diags.HasErrors() {
		return e.Diags
	}
	return nil
}

// DuplicateNameError reports two formulae with the same name in one batch.
type DuplicateNameError struct {
	Name   string
	First  string
	Second string
}

func (e *DuplicateNameError) Error() string {
	if e.First == e.Second {
		return fmt.Sprintf("formula %q is defined more than once in %s", e.Name, e.First)
	}
	return fmt.Sprintf("formula %q is defined in both %s and %s", e.Name, e.First, e.Second)
}
