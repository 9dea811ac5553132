// Package logger is the core's diagnostics sink. Adapted from
// evanw-esbuild's internal/logger: a Log is a small bundle of closures
// (AddMsg/HasErrors/Done) rather than an interface, so a caller can
// swap in whatever collection strategy it needs. esbuild's own package
// also offers a streaming stderr writer tied to a terminal and a
// Msg/Location pointing at source bytes; this core has no source text
// to point at (parsing is out of scope), so a Msg here carries a
// module path and statement id instead.
package logger

import "sync"

// Kind enumerates the diagnostic kinds the core can raise.
type Kind uint8

const (
	// MalformedImport/MalformedExport: a Named specifier's ident doesn't
	// resolve to exactly one definition within its own module — either no
	// definition at all, or more than one (an import colliding with a
	// local declaration, say). Not recoverable for that module: tree
	// shaking is skipped and every one of its own statements is kept.
	MalformedImport Kind = iota
	MalformedExport
	DanglingReExport
	AmbiguousExportResolution
	InvariantViolation
	// UnresolvableModule: the module supply couldn't produce a module for
	// a resolved import/export source path at all. A resolver/collaborator
	// failure, not a facet-consistency violation — the affected source is
	// simply skipped rather than demoting any module to keep-everything.
	UnresolvableModule
)

func (k Kind) String() string {
	switch k {
	case MalformedImport:
		return "malformed-import"
	case MalformedExport:
		return "malformed-export"
	case DanglingReExport:
		return "dangling-re-export"
	case AmbiguousExportResolution:
		return "ambiguous-export-resolution"
	case InvariantViolation:
		return "invariant-violation"
	case UnresolvableModule:
		return "unresolvable-module"
	default:
		return "unknown"
	}
}

// Severity distinguishes diagnostics that merely inform (a dangling
// re-export is reported as a warning and the module degrades rather
// than failing) from ones a caller may want to treat as fatal.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Msg is one diagnostic. StmtId is -1 when the diagnostic isn't about a
// single statement (e.g. a whole-module InvariantViolation).
type Msg struct {
	Kind       Kind
	Severity   Severity
	ModulePath string
	StmtId     int
	Text       string
}

// Log is a small bundle of closures, matching esbuild's own Log shape —
// the core only ever calls AddMsg/HasErrors/Done, and never constructs
// a Msg slice itself.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

// NewDeferLog returns a Log that collects every message in memory,
// mirroring esbuild's own NewDeferLog. internal/shaker uses one per
// Shake call, since the core never owns a terminal and always returns
// its diagnostics to the caller rather than printing them.
func NewDeferLog() Log {
	var mu sync.Mutex
	var msgs []Msg
	var hasErrors bool

	return Log{
		AddMsg: func(m Msg) {
			mu.Lock()
			defer mu.Unlock()
			if m.Severity == SeverityError {
				hasErrors = true
			}
			msgs = append(msgs, m)
		},
		HasErrors: func() bool {
			mu.Lock()
			defer mu.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mu.Lock()
			defer mu.Unlock()
			out := make([]Msg, len(msgs))
			copy(out, msgs)
			return out
		},
	}
}
