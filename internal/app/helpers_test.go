package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/formulagrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// setupAppTest writes formula files into a temp dir and returns an App
// reading them, plus its output and log buffers.
func setupAppTest(t *testing.T, files map[string]string, mutate func(*Config), opts ...Option) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	root := t.TempDir()
	dir := testutil.WriteFiles(t, filepath.Join(root, "Formula"), files)

	cfg := DefaultConfig()
	cfg.FormulaePath = dir
	cfg.Prefix = filepath.Join(root, "prefix")
	cfg.BuildRoot = filepath.Join(root, "build")
	cfg.LogLevel = "debug"
	if mutate != nil {
		mutate(&cfg)
	}
	valid, err := NewConfig(cfg)
	require.NoError(t, err)

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	opts = append([]Option{WithEnviron(func() []string { return []string{"PATH=/usr/bin:/bin", "HOME=/root"} })}, opts...)
	a := NewApp(out, logs, valid, opts...)

	t.Cleanup(func() {
		if os.Getenv("FORMULAGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}
