package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeRunner is an in-memory StepRunner. Behavior is keyed by "pkg/index".
type fakeRunner struct {
	mu    sync.Mutex
	calls []StepRequest

	exit     map[string]int
	timeouts map[string]bool
	startErr map[string]error
	delay    time.Duration
	// onRun, when set, is called before each step returns.
	onRun func(req StepRequest)

	running    int
	maxRunning int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		exit:     make(map[string]int),
		timeouts: make(map[string]bool),
		startErr: make(map[string]error),
	}
}

func stepKey(pkg string, idx int) string {
	return fmt.Sprintf("%s/%d", pkg, idx)
}

func (r *fakeRunner) failStep(pkg string, idx, status int) *fakeRunner {
	r.exit[stepKey(pkg, idx)] = status
	return r
}

func (r *fakeRunner) Run(ctx context.Context, req StepRequest) (StepOutcome, error) {
	key := stepKey(req.Package, req.Index)

	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.running++
	r.maxRunning = max(r.maxRunning, r.running)
	status := r.exit[key]
	timeout := r.timeouts[key]
	startErr := r.startErr[key]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.onRun != nil {
		r.onRun(req)
	}

	output := []byte(fmt.Sprintf("output of %s", key))
	switch {
	case startErr != nil:
		return StepOutcome{}, startErr
	case timeout:
		return StepOutcome{}, &TimeoutError{Package: req.Package, Index: req.Index, Timeout: req.Timeout, Output: output}
	}
	return StepOutcome{ExitStatus: status, Output: output}, nil
}

// packagesRun returns the packages that reached the runner, in first-call order.
func (r *fakeRunner) packagesRun() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	seen := make(map[string]bool)
	for _, c := range r.calls {
		if !seen[c.Package] {
			seen[c.Package] = true
			out = append(out, c.Package)
		}
	}
	return out
}

func (r *fakeRunner) callsFor(pkg string) []StepRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StepRequest
	for _, c := range r.calls {
		if c.Package == pkg {
			out = append(out, c)
		}
	}
	return out
}
