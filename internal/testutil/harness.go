package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/formulagrid/internal/executor"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Reset discards the buffered data.
func (b *SafeBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b.Reset()
}

// WriteFiles creates every file of files (relative path -> content) under
// dir and returns dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

// RecordingRunner is an executor.StepRunner that never starts a process.
// Steps of packages listed in Fail exit with the mapped status.
type RecordingRunner struct {
	mu       sync.Mutex
	requests []executor.StepRequest

	Fail   map[string]int
	Output []byte
}

func (r *RecordingRunner) Run(ctx context.Context, req executor.StepRequest) (executor.StepOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if status, ok := r.Fail[req.Package]; ok {
		return executor.StepOutcome{ExitStatus: status, Output: r.Output}, nil
	}
	return executor.StepOutcome{}, nil
}

// Requests returns a copy of every request seen so far, in call order.
func (r *RecordingRunner) Requests() []executor.StepRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.StepRequest(nil), r.requests...)
}

// Packages returns the package of every request, in call order.
func (r *RecordingRunner) Packages() []string {
	reqs := r.Requests()
	out := make([]string, len(reqs))
	for i, req := range reqs {
		out[i] = req.Package
	}
	return out
}
