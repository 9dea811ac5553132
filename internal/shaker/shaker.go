// Package shaker is the orchestration glue: it iterates the module
// graph, seeds roots from entry points, drives internal/propagate's
// per-module fixpoint until the whole graph is quiescent, and combines
// the result with the Side-Effect Oracle.
//
// The overall shape — a worklist of modules to (re)activate, growing as
// import/export edges pull new names into use, run until no module's
// known-used set grows any further — is the cross-file generalization of
// esbuild's own linker.markFileLiveForTreeShaking /
// markPartLiveForTreeShaking recursion (internal/linker/linker.go):
// esbuild recurses through a pre-resolved part graph; this core instead
// recurses through module paths, re-running internal/propagate per
// module each time its seed set grows, because (unlike esbuild) this
// core's statement graph is rebuilt once per module rather than linked
// into one whole-program part graph up front — the build phase and the
// propagation phase stay two separate passes.
package shaker

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/leafprune/leafprune/internal/exportresolve"
	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/logger"
	"github.com/leafprune/leafprune/internal/module"
	"github.com/leafprune/leafprune/internal/propagate"
	"github.com/leafprune/leafprune/internal/sideeffect"
	"github.com/leafprune/leafprune/internal/stmt"
	"github.com/leafprune/leafprune/internal/stmtgraph"
)

// Result is the outcome of a Shake call: the liveness map across the
// whole module graph, plus whatever diagnostics accumulated along the
// way.
type Result struct {
	Liveness    map[string]propagate.Liveness
	Diagnostics []logger.Msg
}

// moduleState is everything the orchestration layer knows about one
// module once the build phase has run.
type moduleState struct {
	mod          *module.Module
	pkg          *module.PackageDescriptor // the package this module was resolved under, nil if none (e.g. an entry point)
	graph        *stmtgraph.Graph
	exportFacets []exportresolve.Facet
	seeds        map[stmt.StatementId]map[propagate.UsedIdent]struct{}
	keepAll      bool // demoted by a per-module InvariantViolation or MalformedImport/Export
	lastLiveness propagate.Liveness
}

// Shake runs the whole tree-shaking pipeline over every module reachable
// from entryPoints and returns the combined liveness map. sideEffectsKey
// is the package.json key the Side-Effect Oracle reads (normally
// "sideEffects"; see internal/config.ProjectConfig.SideEffectsKey).
func Shake(supply module.Supply, entryPoints []string, sideEffectsKey string, log logger.Log) Result {
	discovered, packages := discoverModules(supply, entryPoints, log)

	states := buildPhase(supply, discovered, packages, log)

	resolveExportStars(states, log)

	seedEntryPoints(states, entryPoints, log)

	runFixpoint(states, log)

	liveness := make(map[string]propagate.Liveness, len(states))
	for path, ms := range states {
		liveness[path] = finalizeWithSideEffectOracle(path, ms, sideEffectsKey, log)
	}

	return Result{Liveness: liveness, Diagnostics: log.Done()}
}

// discoverModules walks the module graph from entryPoints via every
// import/export source, sequentially — graph discovery itself is cheap
// pointer-chasing over already-resolved import tables, not the
// expensive per-module work the build phase parallelizes (only the
// *build* phase needs to run in parallel).
func discoverModules(supply module.Supply, entryPoints []string, log logger.Log) (map[string]*module.Module, map[string]*module.PackageDescriptor) {
	out := map[string]*module.Module{}
	packages := map[string]*module.PackageDescriptor{}
	var queue []string
	queue = append(queue, entryPoints...)

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, ok := out[path]; ok {
			continue
		}

		mod, err := supply.Module(path)
		if err != nil {
			log.AddMsg(logger.Msg{Kind: logger.UnresolvableModule, Severity: logger.SeverityWarning, ModulePath: path, StmtId: -1, Text: err.Error()})
			continue
		}
		out[path] = mod

		for _, item := range mod.Body {
			if item.Source == "" {
				continue
			}
			resource, ok := mod.ResolvedImports[item.Source]
			if !ok || resource.IsExternal() {
				continue
			}
			queue = append(queue, resource.Resolved.Path)
			if resource.Resolved.Package != nil {
				packages[resource.Resolved.Path] = resource.Resolved.Package
			}
		}
	}

	return out, packages
}

// buildPhase runs the parallel build phase: one goroutine per module,
// each producing its Statement Graph and export-facet list with
// no cross-module reads, fanned out over golang.org/x/sync/errgroup the
// way ingo-eichhorst-agent-readyness's internal/agent.RunMetricsParallel
// fans work out over a fixed unit list.
func buildPhase(supply module.Supply, discovered map[string]*module.Module, packages map[string]*module.PackageDescriptor, log logger.Log) map[string]*moduleState {
	states := make(map[string]*moduleState, len(discovered))
	paths := make([]string, 0, len(discovered))
	for path := range discovered {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	results := make([]*moduleState, len(paths))

	g, _ := errgroup.WithContext(context.Background())
	for i, path := range paths {
		i, path, mod := i, path, discovered[path]
		g.Go(func() error {
			results[i] = buildModule(path, mod, log)
			results[i].pkg = packages[path]
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range paths {
		states[path] = results[i]
	}
	_ = supply
	return states
}

// buildModule classifies every body item, builds the statement graph,
// and collects the module's export-bearing facets. A panic raised out of
// Classify/Build (an InvariantViolation — an internal invariant broke) is
// recovered here and demotes the module to keep-everything: a panic
// never escapes Shake itself.
func buildModule(path string, mod *module.Module, log logger.Log) (ms *moduleState) {
	ms = &moduleState{mod: mod, seeds: map[stmt.StatementId]map[propagate.UsedIdent]struct{}{}}

	defer func() {
		if r := recover(); r != nil {
			log.AddMsg(logger.Msg{
				Kind: logger.InvariantViolation, Severity: logger.SeverityError,
				ModulePath: path, StmtId: -1, Text: fmt.Sprintf("%v", r),
			})
			ms.keepAll = true
			ms.graph = nil
		}
	}()

	descriptors := make([]stmt.Descriptor, len(mod.Body))
	for i, item := range mod.Body {
		descriptors[i] = stmt.Classify(i, item, mod.UnresolvedCtxt)
	}

	ms.graph = stmtgraph.Build(descriptors)

	for _, d := range descriptors {
		if d.Export != nil {
			ms.exportFacets = append(ms.exportFacets, exportresolve.Facet{StmtId: d.Id, Export: d.Export})
		}
	}

	if !validateFacetIdents(descriptors, path, log) {
		// A malformed facet is recoverable unlike an InvariantViolation: the
		// graph itself is well-formed, so propagation is skipped by keeping
		// every one of this module's own statements outright rather than
		// discarding the graph and reporting the module empty.
		ms.keepAll = true
	}

	return ms
}

// validateFacetIdents checks that every locally bound name in the module —
// one introduced by an import specifier, or surfaced by a bare
// `export {name}` with no re-export source and no inline declaration on
// the same statement — traces back to exactly one definition in the
// module. A name with zero definitions can't actually be imported or
// exported at all; a name with more than one means an import collides
// with a local declaration (or two declarations collide with each
// other), so the module's own binding structure can no longer be trusted
// for tree-shaking. Either way the violation is reported against the
// statement that named the ident, and the caller demotes the whole
// module rather than guessing which definition should win.
func validateFacetIdents(descriptors []stmt.Descriptor, path string, log logger.Log) bool {
	definedBy := map[ident.Ident][]stmt.StatementId{}
	for _, d := range descriptors {
		for name := range d.DefinedIdents {
			definedBy[name] = append(definedBy[name], d.Id)
		}
	}

	ok := true

	for _, d := range descriptors {
		if d.Import != nil {
			for _, spec := range d.Import.Specifiers {
				if len(definedBy[spec.Local]) > 1 {
					log.AddMsg(logger.Msg{
						Kind: logger.MalformedImport, Severity: logger.SeverityError,
						ModulePath: path, StmtId: d.Id,
						Text: fmt.Sprintf("imported name %q collides with another definition of the same name in this module", spec.Local),
					})
					ok = false
				}
			}
		}

		if d.Export == nil || d.Export.Source != "" {
			continue
		}
		for _, spec := range d.Export.Specifiers {
			var local ident.Ident
			switch spec.Kind {
			case stmt.ExportNamed:
				local = spec.Local
			case stmt.ExportDefault:
				local = spec.Local
			default:
				continue
			}
			if local == "" || d.DefinedIdents.Has(local) {
				continue
			}
			switch len(definedBy[local]) {
			case 0:
				log.AddMsg(logger.Msg{
					Kind: logger.MalformedExport, Severity: logger.SeverityError,
					ModulePath: path, StmtId: d.Id,
					Text: fmt.Sprintf("exported name %q does not resolve to any definition in this module", local),
				})
				ok = false
			case 1:
			default:
				log.AddMsg(logger.Msg{
					Kind: logger.MalformedExport, Severity: logger.SeverityError,
					ModulePath: path, StmtId: d.Id,
					Text: fmt.Sprintf("exported name %q resolves to more than one definition in this module", local),
				})
				ok = false
			}
		}
	}

	return ok
}

// resolveExportStars is the `export *` fan-out pass, the cross-module
// analogue of esbuild's addExportsForExportStar: it decides whether each
// module's star re-export(s) classify as a single resolved ExportAll or
// as multiple ExportAmbiguous candidates, and fills in each specifier's
// resolved Names.
func resolveExportStars(states map[string]*moduleState, log logger.Log) {
	cache := map[string]ident.Set{}

	for path, ms := range states {
		var stars []*stmt.ExportSpecifier
		for _, f := range ms.exportFacets {
			for i := range f.Export.Specifiers {
				if f.Export.Specifiers[i].Kind == stmt.ExportAll {
					stars = append(stars, &f.Export.Specifiers[i])
				}
			}
		}

		// Two or more `export * from` statements in the same module each
		// become an Ambiguous candidate rather than a direct All match, so
		// a downstream query can promote the sole name-bearing one.
		if len(stars) >= 2 {
			for _, s := range stars {
				s.Kind = stmt.ExportAmbiguous
			}
		}

		for _, f := range ms.exportFacets {
			source := f.Export.Source
			if source == "" {
				continue
			}
			for i := range f.Export.Specifiers {
				spec := &f.Export.Specifiers[i]
				if spec.Kind != stmt.ExportAll && spec.Kind != stmt.ExportAmbiguous {
					continue
				}
				resource, ok := ms.mod.ResolvedImports[source]
				if !ok || resource.IsExternal() {
					// Dangling or external re-export: degrade to an
					// Ambiguous specifier with no resolvable names rather
					// than failing the module.
					spec.Kind = stmt.ExportAmbiguous
					spec.Names = nil
					log.AddMsg(logger.Msg{Kind: logger.DanglingReExport, Severity: logger.SeverityWarning, ModulePath: path, StmtId: f.StmtId, Text: "export * from unresolved source " + source})
					continue
				}
				spec.Names = visibleExportNames(resource.Resolved.Path, states, cache, map[string]bool{}).Sorted()
			}
		}
	}
}

// visibleExportNames computes a module's full re-exportable name surface
// (every Named/Namespace export plus whatever its own export-star
// specifiers forward), memoized per module path. A `default` export is
// never forwarded through a star re-export (carried from
// addExportsForExportStar's explicit default-skip), and a
// cycle in the re-export chain degrades to an empty contribution rather
// than looping forever.
func visibleExportNames(path string, states map[string]*moduleState, cache map[string]ident.Set, visiting map[string]bool) ident.Set {
	if cached, ok := cache[path]; ok {
		return cached
	}
	if visiting[path] {
		return ident.Set{}
	}
	visiting[path] = true
	defer delete(visiting, path)

	ms, ok := states[path]
	if !ok {
		return ident.Set{}
	}

	names := ident.Set{}
	for _, f := range ms.exportFacets {
		for _, spec := range f.Export.Specifiers {
			switch spec.Kind {
			case stmt.ExportNamed:
				names = names.Add(spec.Exported)
			case stmt.ExportNamespace:
				names = names.Add(spec.Alias)
			case stmt.ExportAll, stmt.ExportAmbiguous:
				source := f.Export.Source
				if source == "" {
					continue
				}
				resource, ok := ms.mod.ResolvedImports[source]
				if !ok || resource.IsExternal() {
					continue
				}
				for _, n := range visibleExportNames(resource.Resolved.Path, states, cache, visiting).Sorted() {
					if n != ident.Ident("default") {
						names = names.Add(n)
					}
				}
			}
		}
	}

	cache[path] = names
	return names
}

// seedEntryPoints treats every exported name as an initial known-used
// seed for each entry module: it resolves every name in that
// module's own export surface back to the statement that produces it and
// seeds that statement directly, the same translation downstream import
// resolution performs (see seedName) but rooted at the entry point
// itself instead of at an importer.
//
// An entry module is also the program's actual execution root, not a
// library module some importer might tree-shake down to a subset of its
// exports — unlike a dependency reached only through an import, nothing
// about *its own* top-level code is conditional on being "used" by
// anything else. So every one of its statements is additionally seeded:
// a statement with no bindings with UsedDefault, a statement with
// bindings with UsedDefined for each of them. This both keeps the entry
// module's own code whole and — critically — makes its own import
// statements show up as live in the very first propagation pass, which
// is what lets runFixpoint's cross-module loop translate them into seeds
// on whatever they import.
func seedEntryPoints(states map[string]*moduleState, entryPoints []string, log logger.Log) {
	for _, path := range entryPoints {
		ms, ok := states[path]
		if !ok {
			continue
		}
		for name := range visibleExportNames(path, states, map[string]ident.Set{}, map[string]bool{}) {
			seedName(states, path, ms, name, log)
		}
		// "default" is queryable even though it's excluded from star
		// forwarding; an entry point's own default export is still a root.
		seedName(states, path, ms, ident.Ident("default"), log)

		if ms.graph == nil {
			continue
		}
		for _, d := range ms.graph.Stmts() {
			if len(d.DefinedIdents) == 0 {
				// No specific bindings to name (a bare statement, a bare
				// re-export, a side-effecting call): UsedDefault still
				// marks the statement present and pulls in whatever it
				// itself references.
				addSeed(ms, d.Id, propagate.UsedIdent{Kind: propagate.UsedDefault})
				continue
			}
			// Seed each of the statement's own bindings by name rather
			// than a single UsedDefault: an import statement's liveness
			// set must carry the specific imported names it binds (e.g.
			// "used" from `import {used} from 'a'`) for runFixpoint's
			// per-specifier liveness check to recognize them as used.
			for name := range d.DefinedIdents {
				addSeed(ms, d.Id, propagate.UsedIdent{Kind: propagate.UsedDefined, Name: name})
			}
		}
	}
}

// seedName resolves name against module path's own export facets and
// translates the match into a concrete propagate.UsedIdent request on
// the producing statement, recursing through re-export chains. runFixpoint
// calls it for each name a live import statement requests of its source.
func seedName(states map[string]*moduleState, path string, ms *moduleState, name ident.Ident, log logger.Log) {
	verdict, stmtId := exportresolve.Resolve(ms.exportFacets, name)
	if verdict == exportresolve.Unmatched {
		return
	}
	if verdict == exportresolve.Ambiguous {
		log.AddMsg(logger.Msg{Kind: logger.AmbiguousExportResolution, Severity: logger.SeverityWarning, ModulePath: path, StmtId: -1, Text: "ambiguous export resolution for " + string(name)})
		return
	}

	facet := findExportFacet(ms, stmtId)
	if facet == nil {
		return
	}

	for _, spec := range facet.Specifiers {
		switch spec.Kind {
		case stmt.ExportNamed:
			if spec.Exported != name {
				continue
			}
			if facet.Source == "" {
				addSeed(ms, stmtId, propagate.UsedIdent{Kind: propagate.UsedDefined, Name: spec.Local})
			} else {
				forwardToSource(states, ms, facet.Source, spec.Local, log)
			}
		case stmt.ExportDefault:
			if name != ident.Ident("default") {
				continue
			}
			if facet.Source == "" {
				addSeed(ms, stmtId, propagate.UsedIdent{Kind: propagate.UsedDefault})
			} else {
				forwardToSource(states, ms, facet.Source, ident.Ident("default"), log)
			}
		case stmt.ExportNamespace:
			if spec.Alias != name {
				continue
			}
			// `export * as ns from 'x'` declares no local binding of its
			// own; using it at all requires the whole target namespace.
			forwardNamespaceToSource(states, ms, facet.Source, log)
		case stmt.ExportAll, stmt.ExportAmbiguous:
			if !containsIdent(spec.Names, name) {
				continue
			}
			addSeed(ms, stmtId, propagate.UsedIdent{Kind: propagate.UsedInExportAll, Name: name})
			forwardToSource(states, ms, facet.Source, name, log)
		}
	}
}

func containsIdent(names []ident.Ident, name ident.Ident) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func findExportFacet(ms *moduleState, stmtId stmt.StatementId) *stmt.ExportFacet {
	for _, f := range ms.exportFacets {
		if f.StmtId == stmtId {
			return f.Export
		}
	}
	return nil
}

func addSeed(ms *moduleState, stmtId stmt.StatementId, u propagate.UsedIdent) {
	if ms.seeds[stmtId] == nil {
		ms.seeds[stmtId] = map[propagate.UsedIdent]struct{}{}
	}
	ms.seeds[stmtId][u] = struct{}{}
}

func forwardToSource(states map[string]*moduleState, ms *moduleState, source string, name ident.Ident, log logger.Log) {
	resource, ok := ms.mod.ResolvedImports[source]
	if !ok || resource.IsExternal() {
		return
	}
	target, ok := states[resource.Resolved.Path]
	if !ok {
		return
	}
	seedName(states, resource.Resolved.Path, target, name, log)
}

func forwardNamespaceToSource(states map[string]*moduleState, ms *moduleState, source string, log logger.Log) {
	resource, ok := ms.mod.ResolvedImports[source]
	if !ok || resource.IsExternal() {
		return
	}
	for name := range visibleExportNames(resource.Resolved.Path, states, map[string]ident.Set{}, map[string]bool{}) {
		forwardToSource(states, ms, source, name, log)
	}
}

// runFixpoint is the cross-module half of the liveness data flow: run
// internal/propagate per module, then for every live import statement
// translate the specific imported names actually used back into a seed
// on the source module, repeating until no module's seed set grows
// anywhere. Within a module, propagate.Propagate already walks the
// intra-module statement graph; what's left here is only the part that
// crosses a module boundary.
//
// Growth is detected with a global per-module seed-count snapshot taken
// once per sweep, rather than checking only the immediate import target:
// seedName can itself forward through a re-export chain into a third
// module several hops away (forwardToSource/forwardNamespaceToSource), so
// a local before/after comparison on just the directly-imported module
// would miss growth further down the chain.
func runFixpoint(states map[string]*moduleState, log logger.Log) {
	paths := make([]string, 0, len(states))
	for path := range states {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	dirty := map[string]bool{}
	seedCounts := map[string]int{}
	for _, p := range paths {
		dirty[p] = true
	}

	for anyDirty(dirty) {
		for _, path := range paths {
			if !dirty[path] {
				continue
			}
			dirty[path] = false

			ms := states[path]
			if ms.graph == nil {
				continue
			}

			liveness := propagateSafely(ms, path, log)
			if ms.keepAll {
				continue
			}

			for _, d := range ms.graph.Stmts() {
				if d.Import == nil {
					continue
				}
				liveSet, isLive := liveness[d.Id]
				if !isLive && len(d.Import.Specifiers) > 0 {
					// An import statement with specifiers not mentioned in
					// the liveness map isn't live: nothing in this module
					// needs any of its bindings.
					continue
				}
				resource, ok := ms.mod.ResolvedImports[d.Import.Source]
				if !ok || resource.IsExternal() {
					continue
				}
				target, ok := states[resource.Resolved.Path]
				if !ok {
					continue
				}
				for _, spec := range d.Import.Specifiers {
					if len(d.Import.Specifiers) > 0 && !liveSet.Has(spec.Local) {
						continue
					}
					switch spec.Kind {
					case stmt.ImportNamed:
						seedName(states, resource.Resolved.Path, target, spec.Imported, log)
					case stmt.ImportDefault:
						seedName(states, resource.Resolved.Path, target, ident.Ident("default"), log)
					case stmt.ImportNamespace:
						for name := range visibleExportNames(resource.Resolved.Path, states, map[string]ident.Set{}, map[string]bool{}) {
							seedName(states, resource.Resolved.Path, target, name, log)
						}
					}
				}
			}
		}

		for _, path := range paths {
			if c := countSeeds(states[path]); c != seedCounts[path] {
				seedCounts[path] = c
				dirty[path] = true
			}
		}
	}
}

// propagateSafely runs internal/propagate for one module, recovering an
// InvariantViolation panic (e.g. a statement graph accessed with a stale
// id after a module was rebuilt) and demoting that module to
// keep-everything rather than letting the panic cross the module
// boundary: a panic never escapes Shake itself.
func propagateSafely(ms *moduleState, path string, log logger.Log) (liveness propagate.Liveness) {
	defer func() {
		if r := recover(); r != nil {
			log.AddMsg(logger.Msg{
				Kind: logger.InvariantViolation, Severity: logger.SeverityError,
				ModulePath: path, StmtId: -1, Text: fmt.Sprintf("%v", r),
			})
			ms.keepAll = true
			liveness = nil
		}
	}()
	liveness = propagate.Propagate(ms.graph, ms.seeds)
	ms.lastLiveness = liveness
	return liveness
}

func countSeeds(ms *moduleState) int {
	n := 0
	for _, set := range ms.seeds {
		n += len(set)
	}
	return n
}

func anyDirty(dirty map[string]bool) bool {
	for _, v := range dirty {
		if v {
			return true
		}
	}
	return false
}

// finalizeWithSideEffectOracle merges a module's propagated liveness with
// the Side-Effect Oracle's verdict: any statement the propagator left
// dead is still kept if the oracle says so, an import of an external
// source is always kept, and a keepAll-demoted module keeps every
// statement outright.
func finalizeWithSideEffectOracle(path string, ms *moduleState, sideEffectsKey string, log logger.Log) propagate.Liveness {
	out := propagate.Liveness{}
	if ms.graph == nil {
		if ms.keepAll {
			for id := range ms.mod.Body {
				out[id] = ident.Set{}
			}
		}
		return out
	}

	manifest, hasPackage, relPath := sideEffectInputs(ms, path, sideEffectsKey)

	liveness := ms.lastLiveness
	if liveness == nil && !ms.keepAll {
		liveness = propagateSafely(ms, path, log)
	}

	for _, d := range ms.graph.Stmts() {
		if ms.keepAll {
			out[d.Id] = d.DefinedIdents
			continue
		}
		if set, ok := liveness[d.Id]; ok {
			out[d.Id] = set
			continue
		}
		if d.Import != nil {
			if resource, ok := ms.mod.ResolvedImports[d.Import.Source]; ok && resource.IsExternal() {
				out[d.Id] = ident.Set{}
				continue
			}
		}
		if sideeffect.MustKeep(d, hasPackage, manifest, relPath) {
			out[d.Id] = ident.Set{}
		}
	}

	return out
}

func sideEffectInputs(ms *moduleState, path string, sideEffectsKey string) (sideeffect.Manifest, bool, string) {
	if ms.pkg == nil {
		return sideeffect.Manifest{}, false, path
	}
	manifest := sideeffect.DecodeManifest(ms.pkg.SideEffectsRaw(sideEffectsKey))
	rel := sideeffect.RelativeToPackageRoot(path, ms.pkg.Directory)
	return manifest, true, rel
}
