package shaker

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/logger"
	"github.com/leafprune/leafprune/internal/module"
	"github.com/leafprune/leafprune/internal/propagate"
	"github.com/leafprune/leafprune/internal/stmt"
)

func resolvedLocal(path string, pkg *module.PackageDescriptor) module.ResolvedResource {
	return module.ResolvedResource{Resolved: &module.ResolvedModule{Path: path, Package: pkg}}
}

func sideEffectsFalse(dir string) *module.PackageDescriptor {
	return &module.PackageDescriptor{RawJSON: json.RawMessage(`{"sideEffects":false}`), Directory: dir}
}

func livenessEqual(t *testing.T, got, want propagate.Liveness) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty(), cmp.Comparer(func(a, b ident.Set) bool {
		return cmp.Equal(a.Sorted(), b.Sorted())
	})); diff != "" {
		t.Fatalf("liveness mismatch (-want +got):\n%s", diff)
	}
}

// Dead named export. Module a: export function used(){} export
// function dead(){}. Entry imports {used} from 'a'.
func TestDeadNamedExportPrunedAcrossModules(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "used", Imported: "used"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/pkg/a.js", pkg)},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "used"}}, Bindings: []stmt.Binding{{Name: "used"}}},
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "dead"}}, Bindings: []stmt.Binding{{Name: "dead"}}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	live := result.Liveness["/pkg/a.js"]
	if _, ok := live[0]; !ok {
		t.Fatalf("expected statement 0 (used) to be live, got %v", live)
	}
	if _, ok := live[1]; ok {
		t.Fatalf("expected statement 1 (dead) to stay dead, got %v", live)
	}
}

// Transitive keep. Module a: const k = 1; export function f(){
// return k }. Entry uses f only.
func TestTransitiveKeepBothStatementsSurvive(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "f", Imported: "f"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/pkg/a.js", pkg)},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemDeclaration, Bindings: []stmt.Binding{{Name: "k"}}},
				{Kind: stmt.ItemExport, UsedNames: []string{"k"}, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "f"}}, Bindings: []stmt.Binding{{Name: "f", DependsOn: []string{"k"}}}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	live := result.Liveness["/pkg/a.js"]
	if _, ok := live[0]; !ok {
		t.Fatalf("expected k's statement to survive transitively, got %v", live)
	}
	if _, ok := live[1]; !ok {
		t.Fatalf("expected f's statement to survive, got %v", live)
	}
}

// "sideEffects: false" prunes a bare import's target module
// entirely. Package declares "sideEffects": false. Module a contains
// console.log('hi'); export const x = 1. Entry bare-imports a.
func TestSideEffectsFalsePrunesBareImportTarget(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path:            "/entry.js",
			Body:            []stmt.Item{{Kind: stmt.ItemImport, Source: "a"}},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/pkg/a.js", pkg)},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExpression, IsCall: true},
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "x"}}, Bindings: []stmt.Binding{{Name: "x"}}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	live := result.Liveness["/pkg/a.js"]
	if len(live) != 0 {
		t.Fatalf("expected both statements in a dead, got %v", live)
	}
}

// Ambiguous export *. Module a: export * from 'b'; export * from
// 'c'; where b has no name Q and c has name Q. Entry imports {Q} from
// 'a'. Expected: the sole candidate carrying Q (export * from 'c') is
// kept; the export * from 'b' specifier is dead.
func TestAmbiguousExportStarResolvesToSoleCandidate(t *testing.T) {
	pkg := sideEffectsFalse("/")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "Q", Imported: "Q"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/a.js", pkg)},
		},
		"/a.js": &module.Module{
			Path: "/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, Source: "b", ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportAll}}},
				{Kind: stmt.ItemExport, Source: "c", ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportAll}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{
				"b": resolvedLocal("/b.js", nil),
				"c": resolvedLocal("/c.js", nil),
			},
		},
		"/b.js": &module.Module{
			Path: "/b.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "other"}}, Bindings: []stmt.Binding{{Name: "other"}}},
			},
		},
		"/c.js": &module.Module{
			Path: "/c.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "Q"}}, Bindings: []stmt.Binding{{Name: "Q"}}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	liveA := result.Liveness["/a.js"]
	if _, ok := liveA[1]; !ok {
		t.Fatalf("expected export * from 'c' (stmt 1) to be live, got %v", liveA)
	}
	if _, ok := liveA[0]; ok {
		t.Fatalf("expected export * from 'b' (stmt 0) to stay dead, got %v", liveA)
	}

	liveC := result.Liveness["/c.js"]
	if _, ok := liveC[0]; !ok {
		t.Fatalf("expected c's Q statement to be live, got %v", liveC)
	}
}

// Order independence: permuting the entry point list must not change
// the resulting liveness for any module. Checked with fixed explicit
// permutations rather than by fuzzing goroutine scheduling.
func TestShakeIsOrderIndependentAcrossEntryPointPermutations(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	newSupply := func() module.Supply {
		return module.StaticSupply{
			"/e1.js": &module.Module{
				Path:            "/e1.js",
				Body:            []stmt.Item{{Kind: stmt.ItemImport, Source: "lib", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "v", Imported: "v"}}}},
				ResolvedImports: map[string]module.ResolvedResource{"lib": resolvedLocal("/pkg/lib.js", pkg)},
			},
			"/e2.js": &module.Module{
				Path:            "/e2.js",
				Body:            []stmt.Item{{Kind: stmt.ItemImport, Source: "lib", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "v", Imported: "v"}}}},
				ResolvedImports: map[string]module.ResolvedResource{"lib": resolvedLocal("/pkg/lib.js", pkg)},
			},
			"/pkg/lib.js": &module.Module{
				Path: "/pkg/lib.js",
				Body: []stmt.Item{
					{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "v"}}, Bindings: []stmt.Binding{{Name: "v"}}},
					{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "w"}}, Bindings: []stmt.Binding{{Name: "w"}}},
				},
			},
		}
	}

	permutations := [][]string{
		{"/e1.js", "/e2.js"},
		{"/e2.js", "/e1.js"},
	}

	var results []propagate.Liveness
	for _, entryPoints := range permutations {
		result := Shake(newSupply(), entryPoints, "sideEffects", logger.NewDeferLog())
		results = append(results, result.Liveness["/pkg/lib.js"])
	}

	for i := 1; i < len(results); i++ {
		livenessEqual(t, results[0], results[i])
	}
	if _, ok := results[0][0]; !ok {
		t.Fatalf("expected v's statement to be live, got %v", results[0])
	}
	if _, ok := results[0][1]; ok {
		t.Fatalf("expected w's statement to stay dead, got %v", results[0])
	}
}

// An import source that resolves to a path the supply can't produce a
// module for (e.g. a stale resolver cache entry) is logged as a
// diagnostic, not fatal: shaking continues for the rest of the graph.
func TestUnresolvableModuleLogsDiagnosticWithoutAbortingShake(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "missing", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "x", Imported: "x"}}},
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "used", Imported: "used"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{
				"missing": resolvedLocal("/missing.js", nil),
				"a":       resolvedLocal("/pkg/a.js", pkg),
			},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "used"}}, Bindings: []stmt.Binding{{Name: "used"}}},
			},
		},
	}

	log := logger.NewDeferLog()
	result := Shake(supply, []string{"/entry.js"}, "sideEffects", log)

	live := result.Liveness["/pkg/a.js"]
	if _, ok := live[0]; !ok {
		t.Fatalf("expected the unrelated module 'a' to resolve normally, got %v", live)
	}

	found := false
	for _, msg := range result.Diagnostics {
		if msg.Kind == logger.UnresolvableModule && msg.ModulePath == "/missing.js" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UnresolvableModule diagnostic for the unresolvable module, got %v", result.Diagnostics)
	}
}

// A Named export whose local name matches no definition anywhere in the
// module (not an inline declaration, not an import) is malformed: the
// module is demoted to keep-everything rather than silently treating the
// dangling reference as dead.
func TestMalformedExportWithNoMatchingDefinitionKeepsWholeModule(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "used", Imported: "used"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/pkg/a.js", pkg)},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "used"}}},
				{Kind: stmt.ItemDeclaration, Bindings: []stmt.Binding{{Name: "unrelated"}}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	live := result.Liveness["/pkg/a.js"]
	if _, ok := live[0]; !ok {
		t.Fatalf("expected statement 0 kept despite the dangling export, got %v", live)
	}
	if _, ok := live[1]; !ok {
		t.Fatalf("expected statement 1 also kept: the whole module is demoted, got %v", live)
	}

	found := false
	for _, msg := range result.Diagnostics {
		if msg.Kind == logger.MalformedExport && msg.ModulePath == "/pkg/a.js" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MalformedExport diagnostic, got %v", result.Diagnostics)
	}
}

// An imported local name that collides with another definition of the
// same name in the same module (e.g. a local declaration shadowing an
// import) is malformed: the two sources can't be told apart.
func TestMalformedImportCollidingWithLocalDeclarationKeepsWholeModule(t *testing.T) {
	pkg := sideEffectsFalse("/pkg")
	supply := module.StaticSupply{
		"/entry.js": &module.Module{
			Path: "/entry.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemImport, Source: "a", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "y", Imported: "y"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{"a": resolvedLocal("/pkg/a.js", pkg)},
		},
		"/pkg/a.js": &module.Module{
			Path: "/pkg/a.js",
			Body: []stmt.Item{
				{Kind: stmt.ItemExport, ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "y"}}, Bindings: []stmt.Binding{{Name: "y"}}},
				{Kind: stmt.ItemImport, Source: "other", ImportSpecs: []stmt.ImportSpecItem{{Kind: stmt.ImportNamed, Local: "x", Imported: "x"}}},
				{Kind: stmt.ItemDeclaration, Bindings: []stmt.Binding{{Name: "x"}}},
				{Kind: stmt.ItemDeclaration, Bindings: []stmt.Binding{{Name: "unrelated"}}},
			},
			ResolvedImports: map[string]module.ResolvedResource{
				"other": {External: &module.ExternalImport{Source: "other", ExternalName: "other"}},
			},
		},
	}

	result := Shake(supply, []string{"/entry.js"}, "sideEffects", logger.NewDeferLog())

	live := result.Liveness["/pkg/a.js"]
	for id := 0; id < 4; id++ {
		if _, ok := live[id]; !ok {
			t.Fatalf("expected statement %d kept: a colliding import demotes the whole module, got %v", id, live)
		}
	}

	found := false
	for _, msg := range result.Diagnostics {
		if msg.Kind == logger.MalformedImport && msg.ModulePath == "/pkg/a.js" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MalformedImport diagnostic, got %v", result.Diagnostics)
	}
}
