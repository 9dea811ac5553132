// Package module holds the external collaborator interfaces the core
// consumes: the parsed module supply, resolved import targets, package
// descriptors, and the entry point list. Real parsing, resolution, and
// bundling live outside this core; this package is the narrow,
// read-only seam between them and the tree-shaking components.
package module

import (
	"encoding/json"

	"github.com/leafprune/leafprune/internal/ident"
	"github.com/leafprune/leafprune/internal/stmt"
)

// Module is a single parsed module: an ordered, immutable body of items
// plus a resolved reference for each import source it contains.
type Module struct {
	Path string
	Body []stmt.Item

	// UnresolvedCtxt is the scope-suffix marker the parser uses to tell
	// references to globals apart from references to local bindings; see
	// internal/stmt.Classify's doc comment for why the core itself never
	// needs to dereference it.
	UnresolvedCtxt ident.Ident

	// ResolvedImports maps an import/export source specifier (as it
	// appears literally in the module body) to what it resolved to.
	ResolvedImports map[string]ResolvedResource
}

// ResolvedResource is what an import/export source specifier resolved
// to: exactly one of Resolved or External is non-nil.
type ResolvedResource struct {
	Resolved *ResolvedModule
	External *ExternalImport
}

// IsExternal reports whether this resource points outside the module
// graph the core can see into.
func (r ResolvedResource) IsExternal() bool {
	return r.External != nil
}

// ResolvedModule is an import source that resolved to another module in
// the graph.
type ResolvedModule struct {
	Path    string
	Package *PackageDescriptor // nil if no enclosing package.json was found
}

// ExternalImport is an import source that resolves outside the bundle.
// Externals are never tree-shaken: any import of one always keeps the
// importing statement alive.
type ExternalImport struct {
	Source       string
	ExternalName string
}

// PackageDescriptor is a package.json's relevant fields. Only the
// side-effects manifest key of RawJSON (normally "sideEffects", see
// SideEffectsRaw) is consulted by the core (internal/sideeffect).
type PackageDescriptor struct {
	RawJSON   json.RawMessage
	Directory string
}

// SideEffectsRaw extracts the raw side-effects manifest value from the
// package descriptor's JSON under key (normally "sideEffects", overridable
// via internal/config's ProjectConfig.SideEffectsKey for monorepo tooling
// that publishes the same data under a vendor-prefixed key), or nil if
// absent.
func (p *PackageDescriptor) SideEffectsRaw(key string) json.RawMessage {
	if p == nil || len(p.RawJSON) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p.RawJSON, &fields); err != nil {
		return nil
	}
	return fields[key]
}

// Supply is the parsed module supply: `get_module(path) ->
// {body, unresolved_ctxt, resolved_imports}`.
type Supply interface {
	Module(path string) (*Module, error)
}

// StaticSupply is the simplest Supply: an in-memory map, used by the CLI
// fixture loader and by tests.
type StaticSupply map[string]*Module

func (s StaticSupply) Module(path string) (*Module, error) {
	m, ok := s[path]
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	return m, nil
}

// NotFoundError is returned by a Supply when a path can't be resolved to
// a module. Kept outside the core's own error kinds since it describes
// a collaborator failure, not a shake-time classification.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "module: no such module: " + e.Path
}
