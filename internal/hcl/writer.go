package hcl

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/zclconf/go-cty/cty"
)

// Write renders formulae as a canonical formula file. Loading the output
// with LoadSource yields formulae equal to the input.
func Write(formulae ...*formula.Formula) []byte {
	file := hclwrite.NewEmptyFile()
	root := file.Body()
	for i, f := range formulae {
		if i > 0 {
			root.AppendNewline()
		}
		writeFormula(root.AppendNewBlock("formula", []string{f.Name}).Body(), f)
	}
	return hclwrite.Format(file.Bytes())
}

func writeFormula(b *hclwrite.Body, f *formula.Formula) {
	setLiteral(b, "desc", f.Desc)
	setLiteral(b, "homepage", f.Homepage)
	setLiteral(b, "version", f.Version)
	setLiteral(b, "license", f.License)

	b.AppendNewline()
	src := b.AppendNewBlock("source", nil).Body()
	setLiteral(src, "url", f.Source.URL)
	setLiteral(src, "sha256", f.Source.SHA256)

	if f.Bottle != nil {
		bottle := b.AppendNewBlock("bottle", nil).Body()
		setLiteral(bottle, "root_url", f.Bottle.RootURL)
		if len(f.Bottle.Checksums) > 0 {
			sums := make(map[string]cty.Value, len(f.Bottle.Checksums))
			for platform, sum := range f.Bottle.Checksums {
				sums[platform] = cty.StringVal(sum)
			}
			bottle.SetAttributeValue("sha256", cty.MapVal(sums))
		}
	}

	if len(f.BuildDeps) > 0 || len(f.RuntimeDeps) > 0 {
		b.AppendNewline()
		setList(b, "build_dependencies", f.BuildDeps)
		setList(b, "dependencies", f.RuntimeDeps)
	}

	for _, c := range f.Conflicts {
		conflict := b.AppendNewBlock("conflict", []string{c.Name}).Body()
		setLiteral(conflict, "because", c.Because)
	}

	b.AppendNewline()
	writeSteps(b.AppendNewBlock("install", nil).Body(), f.Steps)

	if len(f.Test) > 0 {
		writeSteps(b.AppendNewBlock("test", nil).Body(), f.Test)
	}

	if s := f.Service; s != nil {
		svc := b.AppendNewBlock("service", nil).Body()
		setString(svc, "working_dir", s.WorkingDir)
		svc.SetAttributeRaw("program_arguments", listTokens(s.ProgramArguments))
		setString(svc, "stdout_path", s.StdoutPath)
		setString(svc, "stderr_path", s.StderrPath)
		if s.RunAtLoad {
			svc.SetAttributeValue("run_at_load", cty.True)
		}
		if s.KeepAlive {
			svc.SetAttributeValue("keep_alive", cty.True)
		}
		setString(svc, "manual", s.Manual)
	}
}

func writeSteps(b *hclwrite.Body, steps []formula.Step) {
	for _, s := range steps {
		step := b.AppendNewBlock("step", nil).Body()
		setString(step, "command", s.Executable)
		setList(step, "args", s.Args)
		if len(s.Env) > 0 {
			step.SetAttributeRaw("env", mapTokens(s.Env))
		}
	}
}

func setString(b *hclwrite.Body, name, value string) {
	if value == "" {
		return
	}
	b.SetAttributeRaw(name, quotedTokens(value))
}

func setLiteral(b *hclwrite.Body, name, value string) {
	if value == "" {
		return
	}
	b.SetAttributeRaw(name, literalTokens(value))
}

func setList(b *hclwrite.Body, name string, values []string) {
	if len(values) == 0 {
		return
	}
	b.SetAttributeRaw(name, listTokens(values))
}

// quotedTokens writes template text s as a quoted template. Template escapes
// such as `$${` are already part of s, so only quoted-string escapes are
// added.
func quotedTokens(s string) hclwrite.Tokens {
	return hclwrite.Tokens{
		{Type: hclsyntax.TokenOQuote, Bytes: []byte(`"`)},
		{Type: hclsyntax.TokenQuotedLit, Bytes: []byte(escapeTemplate(s))},
		{Type: hclsyntax.TokenCQuote, Bytes: []byte(`"`)},
	}
}

var templateEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"%{", "%%{",
	"${", "$${",
)

func escapeTemplate(s string) string {
	return templateEscaper.Replace(s)
}

// literalTokens writes s as a quoted string for attributes decoded without
// placeholders, so `${` is escaped too.
func literalTokens(s string) hclwrite.Tokens {
	toks := quotedTokens("")
	toks[1].Bytes = []byte(literalEscaper.Replace(s))
	return toks
}

func listTokens(values []string) hclwrite.Tokens {
	toks := hclwrite.Tokens{{Type: hclsyntax.TokenOBrack, Bytes: []byte("[")}}
	for i, v := range values {
		if i > 0 {
			toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenComma, Bytes: []byte(",")})
		}
		q := quotedTokens(v)
		if i > 0 {
			q[0].SpacesBefore = 1
		}
		toks = append(toks, q...)
	}
	return append(toks, &hclwrite.Token{Type: hclsyntax.TokenCBrack, Bytes: []byte("]")})
}

func mapTokens(m map[string]string) hclwrite.Tokens {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	toks := hclwrite.Tokens{
		{Type: hclsyntax.TokenOBrace, Bytes: []byte("{")},
		{Type: hclsyntax.TokenNewline, Bytes: []byte("\n")},
	}
	for _, k := range keys {
		toks = append(toks, literalTokens(k)...)
		toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenEqual, Bytes: []byte("="), SpacesBefore: 1})
		q := quotedTokens(m[k])
		q[0].SpacesBefore = 1
		toks = append(toks, q...)
		toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenNewline, Bytes: []byte("\n")})
	}
	return append(toks, &hclwrite.Token{Type: hclsyntax.TokenCBrace, Bytes: []byte("}")})
}
