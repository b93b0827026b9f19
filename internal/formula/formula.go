// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package formula

import (
	"slices"
	"sort"
)

// Formula is the descriptor for a single package.
type Formula struct {
	Name     string
	Version  string
	Desc     string
	Homepage string
	License  string

	Source Source
	Bottle *Bottle

	// BuildDeps are only needed while the package is being built.
	BuildDeps []string
	// RuntimeDeps must stay installed for the package to work.
	RuntimeDeps []string
	Conflicts   []Conflict

	// Steps is the ordered install sequence. An empty sequence is a no-op install.
	Steps []Step
	// Test holds the optional post-install smoke test.
	Test []Step

	Service *ServiceTemplate
}

// Source is the location and checksum of the upstream archive.
type Source struct {
	URL    string
	SHA256 string
}

// Bottle describes prebuilt binary archives published for the package.
type Bottle struct {
	RootURL string
	// Checksums is keyed by platform tag, e.g. "big_sur".
	Checksums map[string]string
}

// Conflict marks another package that cannot be installed alongside this one.
type Conflict struct {
	Name    string
	Because string
}

// Step is one external command of a build or test sequence.
type Step struct {
	Executable string
	Args       []string
	Env        map[string]string
}

// ServiceTemplate is the daemon definition of an installed package.
type ServiceTemplate struct {
	WorkingDir       string
	ProgramArguments []string
	StdoutPath       string
	StderrPath       string
	RunAtLoad        bool
	KeepAlive        bool
	// Manual is the command users can run instead of loading the service.
	Manual string
}

// Dependencies returns the sorted union of build and runtime dependencies.
func (f *Formula) Dependencies() []string {
	seen := make(map[string]struct{}, len(f.BuildDeps)+len(f.RuntimeDeps))
	var out []string
	for _, list := range [][]string{f.BuildDeps, f.RuntimeDeps} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ConflictsWith reports whether f declares a conflict with the named package
// and returns the declared reason.
func (f *Formula) ConflictsWith(name string) (string, bool) {
	for _, c := range f.Conflicts {
		if c.Name == name {
			return c.Because, true
		}
	}
	return "", false
}

// Normalize sorts and de-duplicates the dependency lists in place so two
// descriptors with the same content compare equal.
func (f *Formula) Normalize() {
	f.BuildDeps = uniqueSorted(f.BuildDeps)
	f.RuntimeDeps = uniqueSorted(f.RuntimeDeps)
	sort.SliceStable(f.Conflicts, func(i, j int) bool {
		return f.Conflicts[i].Name < f.Conflicts[j].Name
	})
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}
