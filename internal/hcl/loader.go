package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/formula"
	"github.com/specialistvlad/formulagrid/internal/fsutil"
)

// Extension is the file extension of formula files.
const Extension = ".hcl"

// Loader reads formula files into a formula.Set.
type Loader struct{}

// NewLoader creates a new HCL formula loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every formula file found under paths (files or directories,
// walked recursively) into a single Set. Formula names must be unique across
// the whole batch.
func (l *Loader) Load(ctx context.Context, paths ...string) (formula.Set, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered formula files.", "count", len(files))

	set := make(formula.Set)
	origin := make(map[string]string)
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read formula file %s: %w", file, err)
		}

		formulae, err := l.LoadSource(ctx, file, src)
		if err != nil {
			return nil, err
		}
		for _, f := range formulae {
			if first, dup := origin[f.Name]; dup {
				return nil, &DuplicateNameError{Name: f.Name, First: first, Second: file}
			}
			origin[f.Name] = file
			set[f.Name] = f
		}
	}

	logger.Debug("HCL loading complete.", "formulae", len(set))
	return set, nil
}

// LoadSource parses a single formula document. filename is only used in
// diagnostics. It performs no I/O.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) ([]*formula.Formula, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &ParseError{File: filename, Reason: "invalid HCL syntax", Diags: diags}
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, &ParseError{File: filename, Reason: "failed to decode formula file", Diags: diags}
	}

	out := make([]*formula.Formula, 0, len(root.Formulae))
	seen := make(map[string]struct{}, len(root.Formulae))
	for _, block := range root.Formulae {
		if _, dup := seen[block.Name]; dup {
			return nil, &DuplicateNameError{Name: block.Name, First: filename, Second: filename}
		}
		seen[block.Name] = struct{}{}

		f, err := translateFormula(filename, block)
		if err != nil {
			return nil, err
		}
		logger.Debug("Formula decoded.", "formula", f.Name, "version", f.Version, "steps", len(f.Steps))
		out = append(out, f)
	}
	return out, nil
}

// Files returns the sorted list of formula files found under paths.
func (l *Loader) Files(paths ...string) ([]string, error) {
	return l.findAllHCLFiles(paths)
}

// findAllHCLFiles walks all given paths and returns a sorted, flat list of
// every formula file found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, Extension)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		} else if filepath.Ext(path) == Extension {
			add(path)
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
