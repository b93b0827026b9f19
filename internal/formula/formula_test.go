// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sum = "7d9a4c9ed6e8df3c3e4b5ff1d1bd4c5e06b8a1c3c0e2b5d6a7f8e9d0c1b2a3f4"

func valid() *Formula {
	return &Formula{
		Name:    "openforticli",
		Version: "0.4.0",
		Source:  Source{URL: "https://github.com/example/openforticli/archive/v0.4.0.tar.gz", SHA256: sum},
		Steps:   []Step{{Executable: "./configure", Args: []string{"--prefix=${prefix}"}}},
	}
}

func TestDependencies_UnionSorted(t *testing.T) {
	f := &Formula{
		BuildDeps:   []string{"pkg-config", "automake", "autoconf"},
		RuntimeDeps: []string{"openssl@1.1", "autoconf", "oath-toolkit"},
	}

	assert.Equal(t, []string{"autoconf", "automake", "oath-toolkit", "openssl@1.1", "pkg-config"}, f.Dependencies())
	assert.Empty(t, (&Formula{}).Dependencies())
}

func TestNormalize(t *testing.T) {
	f := &Formula{
		BuildDeps:   []string{"b", "a", "b"},
		RuntimeDeps: []string{},
		Conflicts:   []Conflict{{Name: "z"}, {Name: "m", Because: "same binary"}},
	}

	f.Normalize()

	assert.Equal(t, []string{"a", "b"}, f.BuildDeps)
	assert.Nil(t, f.RuntimeDeps)
	assert.Equal(t, "m", f.Conflicts[0].Name)

	because, ok := f.ConflictsWith("m")
	assert.True(t, ok)
	assert.Equal(t, "same binary", because)
	_, ok = f.ConflictsWith("a")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Run("valid formula", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("escaped placeholders are literal text", func(t *testing.T) {
		f := valid()
		f.Steps[0].Args = []string{"DESTDIR=$${destdir}", "$$${prefix}", "%%{ x }"}
		assert.NoError(t, f.Validate())
	})

	t.Run("empty install sequence is allowed", func(t *testing.T) {
		f := valid()
		f.Steps = nil
		assert.NoError(t, f.Validate())
	})

	testCases := []struct {
		name   string
		mutate func(f *Formula)
		field  string
	}{
		{"missing name", func(f *Formula) { f.Name = " " }, "name"},
		{"missing version", func(f *Formula) { f.Version = "" }, "version"},
		{"missing url", func(f *Formula) { f.Source.URL = "" }, "source.url"},
		{"short checksum", func(f *Formula) { f.Source.SHA256 = "abc" }, "source.sha256"},
		{"upper-case checksum", func(f *Formula) { f.Source.SHA256 = strings.ToUpper(sum) }, "source.sha256"},
		{"bad bottle checksum", func(f *Formula) {
			f.Bottle = &Bottle{Checksums: map[string]string{"big_sur": "nope"}}
		}, "bottle.sha256.big_sur"},
		{"self dependency", func(f *Formula) { f.RuntimeDeps = []string{f.Name} }, "dependencies"},
		{"self conflict", func(f *Formula) { f.Conflicts = []Conflict{{Name: f.Name}} }, "conflict"},
		{"empty executable", func(f *Formula) { f.Steps = append(f.Steps, Step{}) }, "install.step[1]"},
		{"empty test executable", func(f *Formula) { f.Test = []Step{{Executable: ""}} }, "test.step[0]"},
		{"service without program", func(f *Formula) { f.Service = &ServiceTemplate{} }, "service.program_arguments"},
		{"unknown placeholder in args", func(f *Formula) { f.Steps[0].Args = []string{"DESTDIR=${destdir}"} }, "install.step[0]"},
		{"unknown placeholder in env", func(f *Formula) { f.Steps[0].Env = map[string]string{"HOME": "${home}"} }, "install.step[0]"},
		{"unterminated placeholder", func(f *Formula) { f.Test = []Step{{Executable: "${bin"}} }, "test.step[0]"},
		{"unknown placeholder in service", func(f *Formula) {
			f.Service = &ServiceTemplate{ProgramArguments: []string{"${bin}/x"}, StdoutPath: "${logs}/out"}
		}, "service"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			f := valid()
			tc.mutate(f)

			// --- Act ---
			err := f.Validate()

			// --- Assert ---
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	t.Run("all violations are reported", func(t *testing.T) {
		f := valid()
		f.Version = ""
		f.Source.URL = ""

		err := f.Validate()

		assert.ErrorContains(t, err, "version: must not be empty")
		assert.ErrorContains(t, err, "source.url: must not be empty")
	})
}

func TestSet(t *testing.T) {
	s, err := NewSet(&Formula{Name: "b"}, &Formula{Name: "a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, s.Names())
	f, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", f.Name)
	_, ok = s.Get("c")
	assert.False(t, ok)

	assert.ErrorContains(t, s.Add(&Formula{Name: "a"}), `formula "a" already present`)

	_, err = NewSet(&Formula{Name: "x"}, &Formula{Name: "x"})
	assert.Error(t, err)
}
