// Package stmt implements the Statement Descriptor component: classifying
// a single module body item into the facts the rest of the
// core needs — defined/used identifiers, import/export facets, and the
// two conservative behavior bits, self-execution and side effects.
package stmt

// StatementId is a statement's dense, zero-based index within its
// module's body. Stable for the life of the module descriptor.
type StatementId = int

// ItemKind tags the shape of a single top-level body item. Real syntax
// parsing is out of this core's scope; ItemKind is the narrow
// contract an external parser front-end is expected to reduce an AST node
// to before handing it to Classify, analogous to how esbuild's own
// js_parser reduces a parsed statement to a js_ast.Part with
// DeclaredSymbols/SymbolUses already computed rather than handing the
// linker raw syntax.
type ItemKind uint8

const (
	// ItemOther covers any statement with no import/export facet and no
	// declared bindings worth tracking individually — e.g. an assignment
	// to an already-declared name, a loop, a block.
	ItemOther ItemKind = iota

	// ItemImport is an `import ... from 'source'` declaration.
	ItemImport

	// ItemExport is an `export ...` declaration, optionally re-exporting
	// from another source.
	ItemExport

	// ItemDeclaration is a `const`/`let`/`var`/`function`/`class`
	// declaration (not itself an export — `export const x = ...` is
	// represented as ItemExport with an inline declaration, so
	// `export function f(){}` is a single statement carrying both facets.
	ItemDeclaration

	// ItemExpression is a bare expression statement, e.g. a call or an
	// assignment expression evaluated for effect.
	ItemExpression

	// ItemUnknown is any syntax form the front-end couldn't classify.
	// Classify treats it with the maximally conservative defaults:
	// IsSelfExecuted = true, HasSideEffects = true.
	ItemUnknown
)

// Binding is one name introduced by a (possibly destructured)
// declaration, together with the specific names its initializer depends
// on — the source of DefinedIdentsMap's finer per-binding dependency
// tracking, e.g. `const {a, b} = f(x)`.
type Binding struct {
	Name      string   // raw, possibly scope-tagged
	DependsOn []string // raw names the binding's own initializer references
}

// Item is the neutral, already-classified-at-a-coarse-level body item
// Classify consumes. It is intentionally far short of a full AST node:
// the core never needs to re-derive syntax, only the facts below.
type Item struct {
	Kind ItemKind

	// ImportFacet/ExportFacet fields, populated when Kind is
	// ItemImport/ItemExport respectively.
	Source          string // import/export source specifier, "" if none
	ImportSpecs     []ImportSpecItem
	ExportSpecs     []ExportSpecItem
	ExportStarNames []string // names of export-star targets already resolved by the caller, see ExportAll

	// Declaration bindings, populated for ItemDeclaration and for
	// ItemExport wrapping an inline declaration (`export const x = ...`).
	Bindings []Binding

	// UsedNames lists every name the statement references anywhere in its
	// body (raw, possibly scope-tagged) — the statement-level
	// UsedIdents, coarser than per-binding DependsOn.
	UsedNames []string

	// IsCall marks a top-level call/new/await/tagged-template form — one
	// of the concrete inputs to IsSelfExecuted.
	IsCall bool

	// HasObservableEffect marks any construct that can affect something
	// outside the statement's own declared bindings (assignment to a
	// non-local name, a call, `delete`, a decorator invocation). Together
	// with Kind == ItemUnknown this feeds the conservative HasSideEffects
	// overapproximation for constructs the front-end couldn't classify.
	HasObservableEffect bool
}

// ImportSpecItem is one specifier inside an import clause.
type ImportSpecItem struct {
	Kind     ImportSpecifierKind
	Local    string // raw
	Imported string // raw, only meaningful for ImportNamed; "" means same as Local
}

type ImportSpecifierKind uint8

const (
	ImportNamespace ImportSpecifierKind = iota
	ImportNamed
	ImportDefault
)

// ExportSpecItem is one specifier inside an export clause.
type ExportSpecItem struct {
	Kind     ExportSpecifierKind
	Local    string // raw, ExportNamed/ExportDefault
	Exported string // raw, ExportNamed only; "" means same as Local
	Alias    string // raw, ExportNamespace only
}

type ExportSpecifierKind uint8

const (
	ExportAll ExportSpecifierKind = iota
	ExportNamed
	ExportDefault
	ExportNamespace
	ExportAmbiguous
)
