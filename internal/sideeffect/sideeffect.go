// Package sideeffect implements the Side-Effect Oracle: deciding whether
// a dead-looking statement or module must still be kept because of a
// declared or inferred side effect.
package sideeffect

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leafprune/leafprune/internal/stmt"
)

// ManifestKind tags the JSON shape a package's "sideEffects" key was
// decoded from.
type ManifestKind uint8

const (
	// ManifestAbsent means no package descriptor, or no "sideEffects" key
	// was present — the oracle conservatively assumes side effects.
	ManifestAbsent ManifestKind = iota
	ManifestBool
	ManifestGlobs
	// ManifestUnrecognized covers any JSON shape other than
	// bool/string/array. This is an intentional conservative default, not
	// an oversight: an unrecognized shape is treated the same as no
	// manifest at all.
	ManifestUnrecognized
)

// Manifest is a decoded "sideEffects" package.json value.
type Manifest struct {
	Kind  ManifestKind
	Bool  bool
	Globs []string // raw string or array-of-string entries, unexpanded
}

// DecodeManifest decodes the raw "sideEffects" JSON value from a
// package.json. raw may be nil (key absent).
func DecodeManifest(raw json.RawMessage) Manifest {
	if len(raw) == 0 {
		return Manifest{Kind: ManifestAbsent}
	}

	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return Manifest{Kind: ManifestBool, Bool: asBool}
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return Manifest{Kind: ManifestGlobs, Globs: []string{asString}}
	}

	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return Manifest{Kind: ManifestGlobs, Globs: asArray}
	}

	return Manifest{Kind: ManifestUnrecognized}
}

// Matches reports whether the manifest declares that modulePath (already
// expressed relative to the package root, see RelativeToPackageRoot)
// carries side effects: a boolean applies uniformly; a string is
// glob-matched; an array is a logical OR over its elements; anything
// else defaults to true.
func (m Manifest) Matches(modulePath string) bool {
	switch m.Kind {
	case ManifestBool:
		return m.Bool
	case ManifestGlobs:
		for _, g := range m.Globs {
			if MatchGlobPattern(g, modulePath) {
				return true
			}
		}
		return false
	default:
		// ManifestAbsent and ManifestUnrecognized both default to true.
		return true
	}
}

// MatchGlobPattern implements package.json's "sideEffects" glob
// semantics: a pattern with no path separator is implicitly prefixed
// with "**/", and a leading "./" is stripped from both pattern and path
// before matching. Matching itself is delegated to doublestar.Match
// rather than hand-rolled, the same shell-glob library bennypowers-cem
// uses for its own workspace file matching.
func MatchGlobPattern(pattern, modulePath string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	trimmedPath := strings.TrimPrefix(modulePath, "./")

	if !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}

	ok, err := doublestar.Match(pattern, trimmedPath)
	if err != nil {
		// An invalid pattern can't match anything; the oracle's caller
		// already defaults to "keep" whenever a manifest can't be
		// trusted (ManifestUnrecognized), so an unmatchable pattern here
		// simply contributes "no" to Matches' OR rather than panicking.
		return false
	}
	return ok
}

// RelativeToPackageRoot computes a module path relative to its package
// directory, in the forward-slash form the manifest matcher expects.
// Module paths are
// always logical forward-slash paths regardless of host OS (the resolved
// module supply owns any OS-specific path handling), so this works
// directly off "path", not "path/filepath".
func RelativeToPackageRoot(modulePath, packageDirectory string) string {
	root := strings.TrimSuffix(path.Clean(packageDirectory), "/") + "/"
	clean := path.Clean(modulePath)
	if rel := strings.TrimPrefix(clean, root); rel != clean {
		return "./" + rel
	}
	return "./" + clean
}

// MustKeep answers the oracle question for a single statement: combine
// the package manifest's verdict for the module with the statement's own
// conservative bits. hasPackage indicates whether the module resolved to
// a package descriptor at all — if not, the module is assumed to have
// side effects.
//
// A package's own manifest, when it resolves to a definitive bool or
// glob verdict, governs outright — it overrides a statement's own
// has_side_effects/is_self_executed bits rather than being OR'd with
// them: "sideEffects: false prunes a bare console.log" only holds if the
// package author's explicit declaration is allowed to override what
// otherwise looks like self-executing code, matching the real-world
// contract package authors sign up for when they set this flag. With no
// package descriptor at all the statement is kept outright. The
// statement bits are consulted only when a package descriptor exists but
// gives no definitive verdict (key absent or an unrecognized shape) —
// moot in practice since Matches already defaults to true there, but
// named to keep the oracle's three declared inputs traceable to code
// rather than silently unused.
func MustKeep(s stmt.Descriptor, hasPackage bool, manifest Manifest, modulePathRelativeToPackageRoot string) bool {
	if !hasPackage {
		return true
	}
	if manifest.Kind == ManifestBool || manifest.Kind == ManifestGlobs {
		return manifest.Matches(modulePathRelativeToPackageRoot)
	}
	// ManifestAbsent/ManifestUnrecognized: no definitive package verdict
	// to defer to, so the statement's own bits (falling through to
	// Matches' own true default) decide.
	return s.HasSideEffects || s.IsSelfExecuted || manifest.Matches(modulePathRelativeToPackageRoot)
}
