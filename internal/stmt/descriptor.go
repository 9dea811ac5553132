package stmt

import "github.com/leafprune/leafprune/internal/ident"

// ImportFacet is a source specifier plus a sequence of
// namespace/named/default specifiers.
type ImportFacet struct {
	Source     string
	Specifiers []ImportSpecifier
}

type ImportSpecifier struct {
	Kind     ImportSpecifierKind
	Local    ident.Ident
	Imported ident.Ident // the imported name for ImportNamed; equals Local when the import isn't aliased and for the other kinds
}

// ExportFacet is a source specifier (for re-exports) plus a sequence of
// named/default/namespace/star export specifiers.
type ExportFacet struct {
	Source     string // non-empty for re-exports ("export ... from 'x'")
	Specifiers []ExportSpecifier
}

type ExportSpecifier struct {
	Kind     ExportSpecifierKind
	Local    ident.Ident   // ExportNamed, ExportDefault
	Exported ident.Ident   // ExportNamed; equals Local when not aliased
	Alias    ident.Ident   // ExportNamespace
	Names    []ident.Ident // ExportAll (resolved names), ExportAmbiguous (candidates)
}

// Descriptor is the full per-statement fact sheet the statement graph and
// propagator operate on.
type Descriptor struct {
	Id StatementId

	Import *ImportFacet
	Export *ExportFacet

	DefinedIdents ident.Set
	UsedIdents    ident.Set

	// DefinedIdentsMap gives, per defined ident, the subset of UsedIdents
	// on which that specific binding depends — finer than the
	// statement-level UsedIdents. Every key is in DefinedIdents, and the
	// union of all values is a subset of UsedIdents.
	DefinedIdentsMap map[ident.Ident]ident.Set

	IsSelfExecuted bool
	HasSideEffects bool
}
