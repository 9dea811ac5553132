// Package exportresolve implements the Export Resolver component: given
// the export-bearing statements of a module, answer whether a queried
// name is exported, and if so, under what confidence.
package exportresolve

import (
	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/stmt"
)

// Verdict is the resolver's answer for a single queried name.
type Verdict uint8

const (
	Unmatched Verdict = iota
	Matched
	Ambiguous
)

// Facet pairs an export-bearing statement's id with its facet, so a
// Matched/promoted verdict can be traced back to the statement that
// produced it.
type Facet struct {
	StmtId stmt.StatementId
	Export *stmt.ExportFacet
}

// Resolve scans facets in order, applying five matching rules:
//
//  1. Default matches the literal name "default".
//  2. Named matches Exported when present, else Local (both stripped).
//  3. Namespace matches its Alias.
//  4. All matches any of its resolved Names.
//  5. Ambiguous matches any of its Names directly (same as All); when it
//     doesn't, the specifier is recorded as an ambiguous candidate rather
//     than discarded.
//
// Any direct match (rules 1-5's positive case) returns Matched
// immediately, attributed to the statement whose specifier matched. If no
// specifier matches directly: exactly one recorded ambiguous candidate is
// promoted to Matched (best-effort disambiguation by uniqueness); two or
// more yields Ambiguous; zero yields Unmatched.
//
// Direct specifiers (Default/Named/Namespace) are scanned in a first pass
// over every facet before All/Ambiguous is considered in a second pass —
// a real named export always wins over a name threaded through one of the
// module's own `export *` specifiers, independent of statement order.
func Resolve(facets []Facet, name ident.Ident) (Verdict, stmt.StatementId) {
	for _, f := range facets {
		for _, spec := range f.Export.Specifiers {
			switch spec.Kind {
			case stmt.ExportDefault:
				if name == ident.Ident("default") {
					return Matched, f.StmtId
				}
			case stmt.ExportNamed:
				exported := spec.Exported
				if exported == "" {
					exported = spec.Local
				}
				if name == exported {
					return Matched, f.StmtId
				}
			case stmt.ExportNamespace:
				if name == spec.Alias {
					return Matched, f.StmtId
				}
			}
		}
	}

	var ambiguous []Facet

	for _, f := range facets {
		for _, spec := range f.Export.Specifiers {
			switch spec.Kind {
			case stmt.ExportAll:
				if containsName(spec.Names, name) {
					return Matched, f.StmtId
				}
			case stmt.ExportAmbiguous:
				if containsName(spec.Names, name) {
					return Matched, f.StmtId
				}
				ambiguous = append(ambiguous, f)
			}
		}
	}

	switch len(ambiguous) {
	case 0:
		return Unmatched, 0
	case 1:
		return Matched, ambiguous[0].StmtId
	default:
		return Ambiguous, 0
	}
}

func containsName(names []ident.Ident, name ident.Ident) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Source classifies a module's export origin: Remote if the first
// export-bearing statement's first specifier is All or Ambiguous, else
// Local. Orchestration uses this to decide whether discovering a
// module's full export surface requires recursively resolving through
// re-export chains.
type Source uint8

const (
	Local Source = iota
	Remote
)

func SourceOf(facets []Facet) Source {
	if len(facets) == 0 || len(facets[0].Export.Specifiers) == 0 {
		return Local
	}
	switch facets[0].Export.Specifiers[0].Kind {
	case stmt.ExportAll, stmt.ExportAmbiguous:
		return Remote
	default:
		return Local
	}
}
