package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/resolver"
	"golang.org/x/sync/errgroup"
)

// scheduler tracks which plan entries are ready, running or final while a
// worker pool builds the plan.
type scheduler struct {
	plan    *resolver.Plan
	results []BuildResult
	// dependents holds the plan indices that directly depend on each entry.
	dependents [][]int

	mu sync.Mutex
	// depCount is the number of unfinished dependencies of each entry.
	depCount []int
	final    []bool
	// remaining counts entries without a final result.
	remaining int
	ready     chan int
}

// newScheduler indexes the plan graph. It fails when the graph and the plan
// order disagree.
func newScheduler(plan *resolver.Plan) (*scheduler, error) {
	n := plan.Len()
	s := &scheduler{
		plan:       plan,
		results:    make([]BuildResult, n),
		dependents: make([][]int, n),
		depCount:   make([]int, n),
		final:      make([]bool, n),
		remaining:  n,
		ready:      make(chan int, n),
	}
	for i, f := range plan.Formulae {
		deps, err := plan.Graph.Dependencies(f.Name)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			j, ok := plan.Index(d)
			if !ok || j >= i {
				return nil, fmt.Errorf("plan entry %q depends on %q, which is not built before it", f.Name, d)
			}
			s.dependents[j] = append(s.dependents[j], i)
		}
		s.depCount[i] = len(deps)
	}
	return s, nil
}

// seed queues every root entry. Entries are queued in plan order so a pool of
// one behaves like the sequential mode.
func (s *scheduler) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.depCount {
		if n == 0 {
			s.ready <- i
		}
	}
	if s.remaining == 0 {
		close(s.ready)
	}
}

// finish records the result of entry i and unlocks or blocks its dependents.
// It fails if entry i already has a result.
func (s *scheduler) finish(ctx context.Context, i int, res BuildResult) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.final[i] {
		return fmt.Errorf("formula %q finished twice", s.plan.Formulae[i].Name)
	}
	s.setFinal(i, res)

	if !res.OK() {
		s.blockDescendants(ctx, i, res.Status)
	} else {
		for _, j := range s.dependents[i] {
			s.depCount[j]--
			if s.depCount[j] == 0 && !s.final[j] {
				logger.Debug("Unlocking dependent formula.", "formula", s.plan.Formulae[j].Name)
				s.ready <- j
			}
		}
	}

	if s.remaining == 0 {
		close(s.ready)
	}
	return nil
}

// blockDescendants gives a final result to every entry downstream of a
// package that did not succeed. Must be called with mu held.
func (s *scheduler) blockDescendants(ctx context.Context, i int, cause Status) {
	logger := ctxlog.FromContext(ctx)
	name := s.plan.Formulae[i].Name

	queue := append([]int(nil), s.dependents[i]...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		if s.final[j] {
			continue
		}
		queue = append(queue, s.dependents[j]...)

		f := s.plan.Formulae[j]
		if cause == Canceled {
			s.setFinal(j, canceledResult(f.Name, f.Version, -1, context.Canceled))
			continue
		}
		logger.Warn("Skipping dependent formula due to upstream failure.", "formula", f.Name, "dependency", name)
		s.setFinal(j, skippedResult(f.Name, f.Version, name))
	}
}

func (s *scheduler) setFinal(i int, res BuildResult) {
	s.results[i] = res
	s.final[i] = true
	s.remaining--
}

// buildParallel runs the plan on a pool of at most Workers goroutines. Ready
// entries are dispatched from the calling goroutine; the group's limit keeps
// the rest waiting.
func (e *Executor) buildParallel(ctx context.Context, plan *resolver.Plan, env map[string]string) []BuildResult {
	logger := ctxlog.FromContext(ctx)
	s, err := newScheduler(plan)
	if err != nil {
		logger.Error("Cannot schedule plan concurrently, building sequentially.", "error", err)
		return e.buildSequential(ctx, plan, env)
	}
	s.seed()

	workers := min(e.opts.Workers, plan.Len())
	logger.Debug("Starting worker pool.", "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range s.ready {
		g.Go(func() error {
			return e.runEntry(gctx, s, i, env)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Worker pool stopped early.", "error", err)
	}
	return s.results
}

// runEntry builds one ready plan entry and reports it to the scheduler.
func (e *Executor) runEntry(ctx context.Context, s *scheduler, i int, env map[string]string) error {
	f := s.plan.Formulae[i]
	logger := ctxlog.FromContext(ctx).With("formula", f.Name)

	if err := ctx.Err(); err != nil {
		logger.Warn("Context canceled, skipping formula.")
		return s.finish(ctx, i, canceledResult(f.Name, f.Version, -1, err))
	}
	logger.Debug("Worker picked up formula.")
	return s.finish(ctx, i, e.buildOne(ctx, f, env))
}
