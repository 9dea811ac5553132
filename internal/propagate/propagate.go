// Package propagate implements the Used-Ident Propagator: a fixed-point
// traversal that, from a set of externally-used exports, produces the
// set of live statements in a single module together with the specific
// defined idents inside each that are live.
//
// This is the ident-subset generalization of esbuild's
// markPartLiveForTreeShaking — esbuild can get away with a boolean
// IsLive per js_ast.Part because its parser has already split
// declarations into one Part per top-level binding. This core keeps the
// coarser "one statement may declare several bindings" granularity
// (`const {a, b} = f(x)`), so liveness has to be tracked per requested
// ident subset, not just per statement — exactly the shape
// xialaup/mako's StatementGraph::analyze_used_statements_and_idents
// carries through its fixpoint (hash_stmt keys on stmt id *and* the
// sorted subset of requested idents, not stmt id alone).
package propagate

import (
	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/stmt"
	"github.com/leafprune/leafprune/internal/stmtgraph"
)

// UsedIdentKind tags the propagation currency variants.
type UsedIdentKind uint8

const (
	// UsedDefined: a specific locally-defined name is used.
	UsedDefined UsedIdentKind = iota
	// UsedDefault: the module's default export is used.
	UsedDefault
	// UsedInExportAll: a specific name funnelled through an `export *`.
	UsedInExportAll
	// UsedExportAll: the entire namespace is used (`import * as`).
	UsedExportAll
)

// UsedIdent is one unit of propagation currency.
type UsedIdent struct {
	Kind UsedIdentKind
	Name ident.Ident // meaningful for UsedDefined and UsedInExportAll only
}

// ExportAllSentinel marks, in a Liveness entry, that the entire
// re-exported namespace of that statement must be kept. Kept as a typed
// constant rather than overloading an Ident value so call sites can't
// mistake it for a real identifier.
const ExportAllSentinel = ident.Ident("*")

// Liveness maps each live statement to the specific defined idents (or
// the ExportAllSentinel, or export-all-forwarded names) that keep it
// alive.
type Liveness map[stmt.StatementId]ident.Set

// seedTuple is a pending unit of work in the fixpoint queue: a statement
// plus the specific defined idents requested of it and the dependency
// idents that request pulls in transitively.
type seedTuple struct {
	id                stmt.StatementId
	usedDefinedIdents ident.Set
	usedDepIdents     ident.Set
}

// Propagate runs the full two-phase algorithm — per-statement seeding
// followed by fixpoint propagation along the statement graph's labelled
// edges — and returns the resulting Liveness map. Liveness is a plain Go
// map, so it carries no iteration order of its own; callers that need
// deterministic output walk statement ids in ascending order themselves.
func Propagate(g *stmtgraph.Graph, seeds map[stmt.StatementId]map[UsedIdent]struct{}) Liveness {
	output := Liveness{}
	var queue []seedTuple

	for id, usedExportIdents := range seeds {
		descriptor := g.Stmt(id)
		usedDefinedIdents := ident.Set{}
		usedDepIdents := ident.Set{}
		skip := false

		for u := range usedExportIdents {
			switch u.Kind {
			case UsedDefined:
				usedDefinedIdents = usedDefinedIdents.Add(u.Name)
				if deps, ok := descriptor.DefinedIdentsMap[u.Name]; ok {
					usedDepIdents = usedDepIdents.Union(deps)
				}
			case UsedDefault:
				usedDepIdents = usedDepIdents.Union(descriptor.UsedIdents)
			case UsedInExportAll:
				output[id] = output[id].Add(u.Name)
				skip = true
			case UsedExportAll:
				output[id] = output[id].Add(ExportAllSentinel)
				skip = true
			}
		}

		if skip {
			continue
		}

		queue = append(queue, seedTuple{id: id, usedDefinedIdents: usedDefinedIdents, usedDepIdents: usedDepIdents})
	}

	runFixpoint(g, output, queue)

	return output
}

// reentryKey is the fixpoint cache key: a statement is revisited only
// when requested with a genuinely new subset of defined idents, never
// when a prior visit already covered the requested subset. The visited
// set keys on both statement id and the specific subset of defined
// idents requested.
type reentryKey struct {
	id     stmt.StatementId
	subset string
}

func keyFor(id stmt.StatementId, usedDefinedIdents ident.Set) reentryKey {
	sorted := usedDefinedIdents.Sorted()
	s := ""
	for _, i := range sorted {
		s += string(i) + "\x00"
	}
	return reentryKey{id: id, subset: s}
}

func runFixpoint(g *stmtgraph.Graph, output Liveness, queue []seedTuple) {
	visited := map[reentryKey]struct{}{}

	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]

		output[head.id] = output[head.id].Union(head.usedDefinedIdents)

		key := keyFor(head.id, head.usedDefinedIdents)
		if _, ok := visited[key]; ok {
			continue
		}
		visited[key] = struct{}{}

		for _, dep := range g.Dependencies(head.id) {
			if !dep.Idents.Intersects(head.usedDepIdents) {
				continue
			}

			depUsedDefined := ident.Set{}
			depTransitive := ident.Set{}
			for n := range head.usedDepIdents {
				if deps, ok := dep.Stmt.DefinedIdentsMap[n]; ok {
					depUsedDefined = depUsedDefined.Add(n)
					depTransitive = depTransitive.Union(deps)
				} else if dep.Stmt.DefinedIdents.Has(n) {
					depUsedDefined = depUsedDefined.Add(n)
				}
			}

			if len(depUsedDefined) == 0 {
				continue
			}

			if idx := findQueued(queue, dep.Stmt.Id); idx >= 0 {
				queue[idx].usedDefinedIdents = queue[idx].usedDefinedIdents.Union(depUsedDefined)
				queue[idx].usedDepIdents = queue[idx].usedDepIdents.Union(depTransitive)
			} else {
				queue = append(queue, seedTuple{id: dep.Stmt.Id, usedDefinedIdents: depUsedDefined, usedDepIdents: depTransitive})
			}
		}
	}
}

func findQueued(queue []seedTuple, id stmt.StatementId) int {
	for i, t := range queue {
		if t.id == id {
			return i
		}
	}
	return -1
}
