// Package dag holds the dependency graph between packages. Edges point from a
// dependency to the package that needs it, so walking Dependents moves
// "downstream" toward what gets built later.
//
// The graph answers three questions for the rest of the application: is it
// acyclic (and if not, which names form the cycle), what is a deterministic
// build order for a set of roots, and which packages are affected when one of
// them fails.
package dag
