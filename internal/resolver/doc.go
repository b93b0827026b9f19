// Package resolver turns a requested package name into a build plan: the
// requested formula plus everything it transitively depends on, ordered so
// that each package comes after all of its dependencies.
//
// Resolution is deterministic. Independent packages are ordered by ascending
// name, so the same formula set and request always produce the same plan.
// Any error (unknown package, missing dependency, cycle, conflict) is
// returned before a plan exists, so nothing is ever built from an invalid
// graph.
package resolver
