package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	// --- Arrange ---
	doc := `
formulae: ./Formula
prefix: /opt/homebrew
workers: 4
step_timeout: 90s
test: true
log:
  level: debug
env:
  MAKEFLAGS: -j4
`

	// --- Act ---
	f, err := Decode(strings.NewReader(doc))

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, f.Formulae)
	assert.Equal(t, "./Formula", *f.Formulae)
	assert.Equal(t, "/opt/homebrew", *f.Prefix)
	assert.Equal(t, 4, *f.Workers)
	assert.Equal(t, Duration(90*time.Second), *f.StepTimeout)
	assert.True(t, *f.Test)
	assert.Equal(t, "debug", *f.Log.Level)
	assert.Nil(t, f.Log.Format)
	assert.Nil(t, f.PTY, "unset fields stay nil")
	assert.Equal(t, map[string]string{"MAKEFLAGS": "-j4"}, f.Env)
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "worker: 3\n", "field worker not found"},
		{"bad duration", "step_timeout: soon\n", `invalid duration "soon"`},
		{"wrong type", "workers: many\n", "cannot unmarshal"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	f, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, f.Workers)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulagrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("color: true\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.True(t, *f.Color)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")
}
