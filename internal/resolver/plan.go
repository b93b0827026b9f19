package resolver

import (
	"github.com/specialistvlad/formulagrid/internal/dag"
	"github.com/specialistvlad/formulagrid/internal/formula"
)

// Plan is an ordered build sequence. For every entry, all of its
// dependencies appear at a lower index, and no formula appears twice.
type Plan struct {
	// Requested holds the names the plan was resolved for, sorted.
	Requested []string
	// Formulae is the build order.
	Formulae []*formula.Formula
	// Graph is the partial order Formulae was flattened from, restricted to
	// the requested closure. Packages with no path between them in Graph may
	// be built concurrently.
	Graph *dag.Graph

	index map[string]int
}

func newPlan(requested []string, order []*formula.Formula, g *dag.Graph) *Plan {
	p := &Plan{
		Requested: requested,
		Formulae:  order,
		Graph:     g,
		index:     make(map[string]int, len(order)),
	}
	for i, f := range order {
		p.index[f.Name] = i
	}
	return p
}

// Len returns the number of packages in the plan.
func (p *Plan) Len() int {
	return len(p.Formulae)
}

// Index returns the plan position of a package.
func (p *Plan) Index(name string) (int, bool) {
	i, ok := p.index[name]
	return i, ok
}

// Names returns the package names in build order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Formulae))
	for i, f := range p.Formulae {
		names[i] = f.Name
	}
	return names
}
