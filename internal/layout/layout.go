// Package layout maps a formula onto concrete install locations and expands
// `${placeholder}` references against them.
package layout

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Placeholder names every formula string may reference.
const (
	KeyName    = "name"
	KeyVersion = "version"
	KeyPrefix  = "prefix"
	KeyBin     = "bin"
	KeySbin    = "sbin"
	KeyLib     = "lib"
	KeyInclude = "include"
	KeyShare   = "share"
	KeyEtc     = "etc"
	KeyVar     = "var"
	KeyOpt     = "opt"
	KeyLogDir  = "log_dir"
)

// Keys returns every supported placeholder name in ascending order.
func Keys() []string {
	keys := []string{
		KeyName, KeyVersion, KeyPrefix, KeyBin, KeySbin, KeyLib,
		KeyInclude, KeyShare, KeyEtc, KeyVar, KeyOpt, KeyLogDir,
	}
	sort.Strings(keys)
	return keys
}

// Layout is the root of an installation tree. Each package gets a versioned
// keg under Cellar, while etc, var and opt are shared across packages.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// Cellar is the directory holding every installed keg.
func (l Layout) Cellar() string {
	return filepath.Join(l.Root, "Cellar")
}

// Prefix is the keg directory of one package version.
func (l Layout) Prefix(name, version string) string {
	return filepath.Join(l.Cellar(), name, version)
}

// Bindings returns the placeholder values for one package version.
func (l Layout) Bindings(name, version string) Bindings {
	prefix := l.Prefix(name, version)
	return Bindings{
		KeyName:    name,
		KeyVersion: version,
		KeyPrefix:  prefix,
		KeyBin:     filepath.Join(prefix, "bin"),
		KeySbin:    filepath.Join(prefix, "sbin"),
		KeyLib:     filepath.Join(prefix, "lib"),
		KeyInclude: filepath.Join(prefix, "include"),
		KeyShare:   filepath.Join(prefix, "share"),
		KeyEtc:     filepath.Join(l.Root, "etc"),
		KeyVar:     filepath.Join(l.Root, "var"),
		KeyOpt:     filepath.Join(l.Root, "opt", name),
		KeyLogDir:  filepath.Join(l.Root, "var", "log", name),
	}
}

// Bindings maps placeholder names to their values.
type Bindings map[string]string

// UnboundError reports a `${name}` reference with no value.
type UnboundError struct {
	Name string
}

func (e *UnboundError) Error() string {
	return fmt.Sprintf("unbound placeholder ${%s}", e.Name)
}

// evalContext exposes the bindings as template variables. No functions are
// registered, so a template can only reference placeholders.
func (b Bindings) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(b))
	for k, v := range b {
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{Variables: vars}
}

// Expand evaluates s as an HCL template against the bindings. `${name}`
// interpolates a placeholder, `$${` stands for a literal `${` and `%%{` for a
// literal `%{`. A bare `$` is kept as is.
func (b Bindings) Expand(s string) (string, error) {
	if !strings.ContainsAny(s, "$%") {
		return s, nil
	}
	expr, err := parseTemplate(s)
	if err != nil {
		return "", err
	}
	for _, traversal := range expr.Variables() {
		if _, ok := b[traversal.RootName()]; !ok {
			return "", &UnboundError{Name: traversal.RootName()}
		}
	}

	val, diags := expr.Value(b.evalContext())
	if diags.HasErrors() {
		return "", fmt.Errorf("cannot expand %q: %w", s, diags)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil || str.IsNull() || !str.IsKnown() {
		return "", fmt.Errorf("template %q does not evaluate to a string", s)
	}
	return str.AsString(), nil
}

// ExpandAll expands every element of in and returns a new slice.
func (b Bindings) ExpandAll(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		v, err := b.Expand(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// CheckTemplate reports whether s would expand once every placeholder is
// bound. It rejects syntax errors, unknown names and function calls.
func CheckTemplate(s string) error {
	_, err := allKeys.Expand(s)
	return err
}

var allKeys = func() Bindings {
	b := make(Bindings)
	for _, k := range Keys() {
		b[k] = k
	}
	return b
}()

func parseTemplate(s string) (hclsyntax.Expression, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(s), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid template %q: %w", s, diags)
	}
	return expr, nil
}
