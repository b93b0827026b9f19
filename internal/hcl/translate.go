// This file turns decoded HCL blocks into the format-agnostic formula model.

package hcl

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/layout"
	"github.com/zclconf/go-cty/cty"
)

// marker brackets every placeholder in strings decoded against
// placeholderContext. Formula files cannot contain it unescaped.
const marker = "\x00"

// placeholderContext resolves every known install placeholder to a marked
// copy of its name, so decoded strings record where each reference was.
// Unknown variables and function calls fail evaluation.
func placeholderContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, key := range layout.Keys() {
		vars[key] = cty.StringVal(marker + key + marker)
	}
	return &hcl.EvalContext{Variables: vars}
}

// templateLiteral escapes text that must stay literal inside a template.
var templateLiteral = strings.NewReplacer("${", "$${", "%{", "%%{")

// templateText turns a string decoded against placeholderContext back into
// canonical template text: literal `${` and `%{` are escaped and each marked
// placeholder becomes `${name}`.
func templateText(decoded string) (string, error) {
	if !strings.Contains(decoded, marker) {
		return templateLiteral.Replace(decoded), nil
	}
	parts := strings.Split(decoded, marker)
	if len(parts)%2 == 0 {
		return "", errors.New("strings must not contain NUL characters")
	}
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			if !slices.Contains(layout.Keys(), part) {
				return "", errors.New("strings must not contain NUL characters")
			}
			b.WriteString("${" + part + "}")
			continue
		}
		if i+1 < len(parts) && strings.HasSuffix(part, "$") {
			return "", fmt.Errorf("a literal \"$\" cannot directly precede ${%s}", parts[i+1])
		}
		b.WriteString(templateLiteral.Replace(part))
	}
	return b.String(), nil
}

func translateFormula(filename string, b *formulaBlock) (*formula.Formula, error) {
	fail := func(reason string, diags hcl.Diagnostics, err error) error {
		return &ParseError{File: filename, Formula: b.Name, Reason: reason, Diags: diags, Err: err}
	}

	if b.Source == nil || strings.TrimSpace(b.Source.URL) == "" {
		return nil, fail("missing required field source.url", nil, nil)
	}
	if b.Install == nil {
		return nil, fail("missing required block install", nil, nil)
	}

	f := &formula.Formula{
		Name:        b.Name,
		Version:     b.Version,
		Desc:        b.Desc,
		Homepage:    b.Homepage,
		License:     b.License,
		Source:      formula.Source{URL: b.Source.URL, SHA256: strings.ToLower(b.Source.SHA256)},
		BuildDeps:   b.BuildDeps,
		RuntimeDeps: b.Deps,
	}

	if f.Version == "" {
		v, ok := InferVersion(f.Source.URL)
		if !ok {
			return nil, fail("version is not set and cannot be inferred from source.url", nil, nil)
		}
		f.Version = v
	}

	if b.Bottle != nil {
		bottle := &formula.Bottle{RootURL: b.Bottle.RootURL}
		if len(b.Bottle.SHA256) > 0 {
			bottle.Checksums = make(map[string]string, len(b.Bottle.SHA256))
			for platform, sum := range b.Bottle.SHA256 {
				bottle.Checksums[platform] = strings.ToLower(sum)
			}
		}
		f.Bottle = bottle
	}

	for _, c := range b.Conflicts {
		f.Conflicts = append(f.Conflicts, formula.Conflict{Name: c.Name, Because: c.Because})
	}

	evalCtx := placeholderContext()

	steps, diags := decodeSteps(b.Install.Body, evalCtx)
	if diags.HasErrors() {
		return nil, fail("invalid install block", diags, nil)
	}
	f.Steps = steps

	if b.Test != nil {
		steps, diags := decodeSteps(b.Test.Body, evalCtx)
		if diags.HasErrors() {
			return nil, fail("invalid test block", diags, nil)
		}
		f.Test = steps
	}

	if b.Service != nil {
		var s serviceBlock
		if diags := gohcl.DecodeBody(b.Service.Body, evalCtx, &s); diags.HasErrors() {
			return nil, fail("invalid service block", diags, nil)
		}
		f.Service = &formula.ServiceTemplate{
			WorkingDir:       s.WorkingDir,
			ProgramArguments: nilIfEmpty(s.ProgramArguments),
			StdoutPath:       s.StdoutPath,
			StderrPath:       s.StderrPath,
			RunAtLoad:        s.RunAtLoad,
			KeepAlive:        s.KeepAlive,
			Manual:           s.Manual,
		}
	}

	if err := rewriteTemplates(f); err != nil {
		return nil, fail("invalid placeholder", nil, err)
	}
	f.Normalize()

	if err := f.Validate(); err != nil {
		return nil, fail("invalid formula", nil, err)
	}
	return f, nil
}

func decodeSteps(body hcl.Body, evalCtx *hcl.EvalContext) ([]formula.Step, hcl.Diagnostics) {
	var sb stepsBlock
	if diags := gohcl.DecodeBody(body, evalCtx, &sb); diags.HasErrors() {
		return nil, diags
	}
	if len(sb.Steps) == 0 {
		return nil, nil
	}
	steps := make([]formula.Step, 0, len(sb.Steps))
	for _, s := range sb.Steps {
		step := formula.Step{Executable: s.Command, Args: nilIfEmpty(s.Args)}
		if len(s.Env) > 0 {
			step.Env = maps.Clone(s.Env)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// rewriteTemplates converts every field decoded against placeholderContext
// into template text.
func rewriteTemplates(f *formula.Formula) error {
	var err error
	rewrite := func(where string, s *string) {
		if err != nil {
			return
		}
		text, terr := templateText(*s)
		if terr != nil {
			err = fmt.Errorf("%s: %w", where, terr)
			return
		}
		*s = text
	}
	rewriteSteps := func(block string, steps []formula.Step) {
		for i := range steps {
			where := fmt.Sprintf("%s.step[%d]", block, i)
			rewrite(where, &steps[i].Executable)
			for j := range steps[i].Args {
				rewrite(where, &steps[i].Args[j])
			}
			for k, v := range steps[i].Env {
				if err == nil && strings.Contains(k, marker) {
					err = fmt.Errorf("%s: env names cannot use placeholders", where)
				}
				rewrite(where, &v)
				steps[i].Env[k] = v
			}
		}
	}

	rewriteSteps("install", f.Steps)
	rewriteSteps("test", f.Test)
	if s := f.Service; s != nil {
		rewrite("service.working_dir", &s.WorkingDir)
		for i := range s.ProgramArguments {
			rewrite(fmt.Sprintf("service.program_arguments[%d]", i), &s.ProgramArguments[i])
		}
		rewrite("service.stdout_path", &s.StdoutPath)
		rewrite("service.stderr_path", &s.StderrPath)
		rewrite("service.manual", &s.Manual)
	}
	return err
}

var (
	archiveSuffix = regexp.MustCompile(`\.(tar\.gz|tar\.bz2|tar\.xz|tar\.zst|tgz|tbz2?|txz|zip|tar)$`)
	versionTail   = regexp.MustCompile(`v?(\d+(?:[._]\d+)*[a-z]?)$`)
)

// InferVersion derives a version from an archive URL the way release
// tarballs are usually named, e.g. `.../archive/v1.17.1.tar.gz` or
// `.../openssl-1.1.1w.tar.gz`.
func InferVersion(url string) (string, bool) {
	base := path.Base(url)
	stem := archiveSuffix.ReplaceAllString(base, "")
	if stem == base {
		return "", false
	}
	m := versionTail.FindStringSubmatch(stem)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}
