package exportresolve

import (
	"testing"

	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/stmt"
)

func allFacet(id stmt.StatementId, names ...ident.Ident) Facet {
	return Facet{StmtId: id, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportAll, Names: names}}}}
}

func ambiguousFacet(id stmt.StatementId, names ...ident.Ident) Facet {
	return Facet{StmtId: id, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportAmbiguous, Names: names}}}}
}

func TestResolveNamedPrefersExportedAlias(t *testing.T) {
	f := Facet{StmtId: 0, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportNamed, Local: "x", Exported: "y"}}}}
	if v, id := Resolve([]Facet{f}, "y"); v != Matched || id != 0 {
		t.Fatalf("expected Matched on exported alias, got %v/%d", v, id)
	}
	if v, _ := Resolve([]Facet{f}, "x"); v != Unmatched {
		t.Fatalf("expected local name not to match once aliased, got %v", v)
	}
}

func TestResolveDefault(t *testing.T) {
	f := Facet{StmtId: 2, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportDefault, Local: "thing"}}}}
	if v, id := Resolve([]Facet{f}, "default"); v != Matched || id != 2 {
		t.Fatalf("expected Matched(2) for default, got %v/%d", v, id)
	}
}

// Two ambiguous star re-exports, one of which carries the queried name:
// the sole specifier whose names contain it wins directly.
func TestResolveExportStarDirectMatch(t *testing.T) {
	facets := []Facet{
		ambiguousFacet(0, "other"),
		ambiguousFacet(1, "Q"),
	}
	v, id := Resolve(facets, "Q")
	if v != Matched || id != 1 {
		t.Fatalf("expected Matched(1), got %v/%d", v, id)
	}
}

// Property 5: exactly one Ambiguous specifier and no direct match anywhere
// promotes that specifier to Matched.
func TestResolvePromotesSoleAmbiguousCandidate(t *testing.T) {
	facets := []Facet{ambiguousFacet(0, "other")}
	v, id := Resolve(facets, "Q")
	if v != Matched || id != 0 {
		t.Fatalf("expected sole ambiguous candidate promoted to Matched, got %v/%d", v, id)
	}
}

func TestResolveTwoNonMatchingAmbiguousIsAmbiguous(t *testing.T) {
	facets := []Facet{ambiguousFacet(0, "other1"), ambiguousFacet(1, "other2")}
	v, _ := Resolve(facets, "Q")
	if v != Ambiguous {
		t.Fatalf("expected Ambiguous, got %v", v)
	}
}

func TestResolveUnmatched(t *testing.T) {
	v, _ := Resolve(nil, "Q")
	if v != Unmatched {
		t.Fatalf("expected Unmatched on empty facet list, got %v", v)
	}
}

// Export-star shadowing: a real named export wins over a star re-export
// of the same name, regardless of which facet appears first in the list.
func TestResolveNamedExportShadowsExportStar(t *testing.T) {
	star := allFacet(0, "Q")
	named := Facet{StmtId: 1, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportNamed, Local: "Q"}}}}

	if v, id := Resolve([]Facet{star, named}, "Q"); v != Matched || id != 1 {
		t.Fatalf("expected named export (stmt 1) to shadow export star (stmt 0) when star comes first, got %v/%d", v, id)
	}
	if v, id := Resolve([]Facet{named, star}, "Q"); v != Matched || id != 1 {
		t.Fatalf("expected named export to shadow export star when named comes first, got %v/%d", v, id)
	}
}

func TestSourceOfClassifiesRemoteVsLocal(t *testing.T) {
	if SourceOf([]Facet{allFacet(0, "a")}) != Remote {
		t.Fatal("expected All-first facet to classify as Remote")
	}
	named := Facet{StmtId: 0, Export: &stmt.ExportFacet{Specifiers: []stmt.ExportSpecifier{{Kind: stmt.ExportNamed, Local: "x"}}}}
	if SourceOf([]Facet{named}) != Local {
		t.Fatal("expected Named-first facet to classify as Local")
	}
}
