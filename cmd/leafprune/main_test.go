package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leafprune/leafprune/internal/config"
	"github.com/leafprune/leafprune/internal/logger"
	"github.com/leafprune/leafprune/pkg/leafprune"
)

func testCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd
}

func builtinResult(t *testing.T) leafprune.Result {
	t.Helper()
	supply := builtinExample()
	return leafprune.Shake(leafprune.Options{Supply: supply, EntryPoints: []string{"/src/index.js"}})
}

func TestDiagnosticsForVerbositySuppressesAllAtSilent(t *testing.T) {
	msgs := []logger.Msg{{Kind: logger.MalformedImport, ModulePath: "/a.js", StmtId: -1, Text: "boom"}}
	if got := diagnosticsForVerbosity(msgs, config.VerbositySilent); got != nil {
		t.Fatalf("expected nil at VerbositySilent, got %v", got)
	}
}

func TestDiagnosticsForVerbosityPassesThroughAtWarnAndVerbose(t *testing.T) {
	msgs := []logger.Msg{{Kind: logger.MalformedImport, ModulePath: "/a.js", StmtId: -1, Text: "boom"}}
	for _, v := range []config.LogVerbosity{config.VerbosityWarn, config.VerbosityVerbose} {
		got := diagnosticsForVerbosity(msgs, v)
		if len(got) != 1 {
			t.Fatalf("verbosity %v: expected 1 diagnostic, got %v", v, got)
		}
	}
}

func TestPrintResultOmitsStatementBreakdownBelowVerbose(t *testing.T) {
	result := builtinResult(t)

	var buf bytes.Buffer
	printResult(testCommand(&buf), builtinExample(), result, config.VerbosityWarn)

	if strings.Contains(buf.String(), "[live]") || strings.Contains(buf.String(), "[dead]") {
		t.Fatalf("expected no per-statement breakdown at VerbosityWarn, got %q", buf.String())
	}
}

func TestPrintResultIncludesStatementBreakdownAtVerbose(t *testing.T) {
	result := builtinResult(t)

	var buf bytes.Buffer
	printResult(testCommand(&buf), builtinExample(), result, config.VerbosityVerbose)

	if !strings.Contains(buf.String(), "/src/index.js") || !strings.Contains(buf.String(), "[live]") {
		t.Fatalf("expected the module path header and per-statement lines at VerbosityVerbose, got %q", buf.String())
	}
}

func TestPrintResultSuppressesEverythingAtSilent(t *testing.T) {
	result := builtinResult(t)
	result.Diagnostics = append(result.Diagnostics, logger.Msg{Kind: logger.MalformedImport, ModulePath: "/src/index.js", StmtId: -1, Text: "boom"})

	var buf bytes.Buffer
	printResult(testCommand(&buf), builtinExample(), result, config.VerbositySilent)

	if buf.Len() != 0 {
		t.Fatalf("expected no output at VerbositySilent, got %q", buf.String())
	}
}

func TestPrintResultJSONOmitsModulesBelowVerbose(t *testing.T) {
	result := builtinResult(t)

	var buf bytes.Buffer
	printResultJSON(testCommand(&buf), builtinExample(), result, config.VerbosityWarn)

	if strings.Contains(buf.String(), "\"liveStatements\"") {
		t.Fatalf("expected no per-module liveness detail at VerbosityWarn, got %q", buf.String())
	}
}

func TestPrintResultJSONIncludesModulesAtVerbose(t *testing.T) {
	result := builtinResult(t)

	var buf bytes.Buffer
	printResultJSON(testCommand(&buf), builtinExample(), result, config.VerbosityVerbose)

	if !strings.Contains(buf.String(), "\"modules\"") || !strings.Contains(buf.String(), "/src/index.js") {
		t.Fatalf("expected module entries at VerbosityVerbose, got %q", buf.String())
	}
}
