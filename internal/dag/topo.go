package dag

import (
	"fmt"
	"slices"
	"sort"
)

type mark uint8

const (
	unvisited mark = iota
	visiting
	visited
)

// frame is one entry of the explicit DFS stack: a node and the position of
// the next dependency to descend into.
type frame struct {
	idx  int
	deps []int
	next int
}

// TopologicalOrder returns the nodes reachable from roots (following
// dependencies) ordered so that every node comes after all of its
// dependencies. Roots and dependencies are visited in ascending ID order, so
// the result is stable for a given graph. A cycle yields a *CycleError and no
// partial order.
//
// The traversal is iterative: nodes are numbered into an arena and marked
// through a slice, so deep graphs never grow the goroutine stack.
func (g *Graph) TopologicalOrder(roots ...string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	depsOf := func(i int) []int {
		n := g.nodes[ids[i]]
		out := make([]int, 0, len(n.deps))
		for depID := range n.deps {
			out = append(out, index[depID])
		}
		slices.Sort(out)
		return out
	}

	sortedRoots := slices.Clone(roots)
	sort.Strings(sortedRoots)

	marks := make([]mark, len(ids))
	order := make([]string, 0, len(ids))

	for _, root := range sortedRoots {
		ri, ok := index[root]
		if !ok {
			return nil, fmt.Errorf("node not found: %s", root)
		}
		if marks[ri] == visited {
			continue
		}

		marks[ri] = visiting
		stack := []*frame{{idx: ri, deps: depsOf(ri)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				switch marks[dep] {
				case visited:
					continue
				case visiting:
					return nil, &CycleError{Cycle: cycleFromStack(ids, stack, dep)}
				}
				marks[dep] = visiting
				stack = append(stack, &frame{idx: dep, deps: depsOf(dep)})
				continue
			}

			marks[top.idx] = visited
			order = append(order, ids[top.idx])
			stack = stack[:len(stack)-1]
		}
	}

	return order, nil
}

// cycleFromStack extracts the cycle closed by an edge back to `to`, which is
// somewhere on the current DFS stack.
func cycleFromStack(ids []string, stack []*frame, to int) []string {
	start := 0
	for i, f := range stack {
		if f.idx == to {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, ids[f.idx])
	}
	return append(cycle, ids[to])
}
