package logger

import "testing"

func TestDeferLogCollectsInOrder(t *testing.T) {
	log := NewDeferLog()
	log.AddMsg(Msg{Kind: MalformedImport, ModulePath: "./a.js", StmtId: 0, Text: "missing source"})
	log.AddMsg(Msg{Kind: DanglingReExport, Severity: SeverityWarning, ModulePath: "./b.js", StmtId: 2, Text: "re-export target not found"})

	msgs := log.Done()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Kind != MalformedImport || msgs[1].Kind != DanglingReExport {
		t.Fatalf("expected insertion order preserved, got %v", msgs)
	}
}

func TestHasErrorsOnlyTrueForErrorSeverity(t *testing.T) {
	log := NewDeferLog()
	log.AddMsg(Msg{Kind: DanglingReExport, Severity: SeverityWarning, ModulePath: "./a.js", StmtId: -1})
	if log.HasErrors() {
		t.Fatal("expected warning-only log to report no errors")
	}

	log.AddMsg(Msg{Kind: InvariantViolation, Severity: SeverityError, ModulePath: "./a.js", StmtId: -1, Text: "panic recovered"})
	if !log.HasErrors() {
		t.Fatal("expected error-severity message to flip HasErrors")
	}
}

func TestDoneReturnsACopyNotTheLiveSlice(t *testing.T) {
	log := NewDeferLog()
	log.AddMsg(Msg{Kind: MalformedExport, ModulePath: "./a.js", StmtId: 0})

	first := log.Done()
	log.AddMsg(Msg{Kind: AmbiguousExportResolution, ModulePath: "./a.js", StmtId: 1})

	if len(first) != 1 {
		t.Fatalf("expected earlier snapshot to stay at 1 message, got %d", len(first))
	}
}
