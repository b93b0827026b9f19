package resolver

import (
	"context"
	"slices"
	"sort"

	"github.com/sahilm/fuzzy"
	"github.com/specialistvlad/formulagrid/internal/ctxlog"
	"github.com/specialistvlad/formulagrid/internal/dag"
	"github.com/specialistvlad/formulagrid/internal/formula"
)

// maxSuggestions caps the "did you mean" list of an UnknownPackageError.
const maxSuggestions = 3

// Resolve computes the build plan for a single requested package.
func Resolve(ctx context.Context, set formula.Set, requested string) (*Plan, error) {
	return ResolveAll(ctx, set, requested)
}

// ResolveAll computes one plan covering the union of the closures of every
// requested package.
func ResolveAll(ctx context.Context, set formula.Set, requested ...string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	roots := slices.Clone(requested)
	sort.Strings(roots)
	roots = slices.Compact(roots)

	for _, name := range roots {
		if _, err := Lookup(set, name); err != nil {
			return nil, err
		}
	}

	g, err := closureGraph(set, roots)
	if err != nil {
		return nil, err
	}
	logger.Debug("Dependency closure collected.", "requested", roots, "packages", g.Len())

	order, err := g.TopologicalOrder(roots...)
	if err != nil {
		return nil, err
	}

	formulae := make([]*formula.Formula, len(order))
	for i, name := range order {
		formulae[i] = set[name]
	}

	if err := checkConflicts(formulae); err != nil {
		return nil, err
	}

	logger.Debug("Plan resolved.", "order", order)
	return newPlan(roots, formulae, g), nil
}

// Lookup returns the named formula, or an *UnknownPackageError carrying
// close matches.
func Lookup(set formula.Set, name string) (*formula.Formula, error) {
	f, ok := set.Get(name)
	if !ok {
		return nil, &UnknownPackageError{Name: name, Suggestions: suggest(set, name)}
	}
	return f, nil
}

// closureGraph walks declared dependencies from roots with an explicit
// worklist and returns the graph of everything reachable.
func closureGraph(set formula.Set, roots []string) (*dag.Graph, error) {
	g := dag.New()
	queue := slices.Clone(roots)
	for _, name := range roots {
		g.AddNode(name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		f := set[name]

		for _, dep := range f.Dependencies() {
			if dep == name {
				return nil, &CycleError{Cycle: []string{name, name}}
			}
			if _, ok := set.Get(dep); !ok {
				return nil, &MissingDependencyError{Package: name, Dependency: dep}
			}
			if !g.Has(dep) {
				g.AddNode(dep)
				queue = append(queue, dep)
			}
			if err := g.AddEdge(dep, name); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// checkConflicts rejects plans holding two packages where either one
// declares a conflict with the other.
func checkConflicts(formulae []*formula.Formula) error {
	present := make(map[string]*formula.Formula, len(formulae))
	for _, f := range formulae {
		present[f.Name] = f
	}
	for _, f := range formulae {
		for _, c := range f.Conflicts {
			if _, ok := present[c.Name]; ok {
				return &ConflictError{Package: f.Name, Conflict: c.Name, Because: c.Because}
			}
		}
	}
	return nil
}

func suggest(set formula.Set, name string) []string {
	names := set.Names()
	matches := fuzzy.Find(name, names)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
