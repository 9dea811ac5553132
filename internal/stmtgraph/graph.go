// Package stmtgraph implements the Statement Graph component: the
// intra-module directed graph of statements with identifier-labelled
// edges.
//
// Nodes and edges are stored in a flat arena indexed by StatementId
// rather than a pointer graph — StatementIds are already dense 0..n, so
// an arena gives O(1) node lookup and avoids aliasing hazards during the
// construction phase's node-then-edge mutation.
package stmtgraph

import (
	"fmt"

	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/stmt"
)

// Graph is a module's statement dependency graph: constructed once, then
// read-only during propagation.
type Graph struct {
	nodes []stmt.Descriptor
	// edges[from] maps a dependency's StatementId to the merged label set
	// of idents that justify the edge. At most one edge per ordered pair,
	// so a map keyed by target id rather than a parallel edge list.
	edges []map[stmt.StatementId]ident.Set
}

// Build performs a two-pass construction: allocate a node per
// descriptor, then for every ordered pair (A, B) compute
// A.UsedIdents ∩ B.DefinedIdents and add a labelled edge when non-empty.
func Build(descriptors []stmt.Descriptor) *Graph {
	g := &Graph{
		nodes: descriptors,
		edges: make([]map[stmt.StatementId]ident.Set, len(descriptors)),
	}
	for i := range g.edges {
		g.edges[i] = map[stmt.StatementId]ident.Set{}
	}

	for _, a := range descriptors {
		for _, b := range descriptors {
			if a.Id == b.Id {
				continue
			}
			var shared ident.Set
			for u := range a.UsedIdents {
				if b.DefinedIdents.Has(u) {
					shared = shared.Add(u)
				}
			}
			if len(shared) > 0 {
				g.AddEdge(a.Id, b.Id, shared)
			}
		}
	}

	return g
}

// AddEdge adds or merges a labelled edge from -> to. If the edge already
// exists its label set is unioned with idents.
func (g *Graph) AddEdge(from, to stmt.StatementId, idents ident.Set) {
	if existing, ok := g.edges[from][to]; ok {
		g.edges[from][to] = existing.Union(idents)
		return
	}
	g.edges[from][to] = idents
}

// Dependency is one direct out-edge: the statement depended on, plus the
// idents that justify the edge.
type Dependency struct {
	Stmt   stmt.Descriptor
	Idents ident.Set
}

// Dependencies returns id's direct out-edges. Iteration order over edges
// is unspecified and must not affect the final output.
func (g *Graph) Dependencies(id stmt.StatementId) []Dependency {
	out := make([]Dependency, 0, len(g.edges[id]))
	for to, idents := range g.edges[id] {
		out = append(out, Dependency{Stmt: g.nodes[to], Idents: idents})
	}
	return out
}

// Stmt returns the descriptor for id. Out-of-range ids are an invariant
// violation — panics as bug.
func (g *Graph) Stmt(id stmt.StatementId) stmt.Descriptor {
	if id < 0 || id >= len(g.nodes) {
		panic(fmt.Sprintf("stmtgraph: invariant violation: unknown statement id %d", id))
	}
	return g.nodes[id]
}

// Stmts returns every statement descriptor in the graph. Iteration order
// need not match body order.
func (g *Graph) Stmts() []stmt.Descriptor {
	return g.nodes
}

// Len reports the number of statements in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}
