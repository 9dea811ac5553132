package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReturnsDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SideEffectsKey != "sideEffects" || cfg.LogVerbosity != VerbosityWarn {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".leafprunerc.yml")
	if err := os.WriteFile(path, []byte("version: 1\nsideEffectsKey: customSideEffects\ndisableTreeShaking: true\nlogVerbosity: verbose\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SideEffectsKey != "customSideEffects" || !cfg.DisableTreeShaking || cfg.LogVerbosity != VerbosityVerbose {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateRejectsUnsupportedVersion(t *testing.T) {
	cfg := defaults()
	cfg.Version = 7
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestValidateRejectsEmptySideEffectsKey(t *testing.T) {
	cfg := defaults()
	cfg.SideEffectsKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty sideEffectsKey")
	}
}

func TestValidateRejectsUnknownVerbosity(t *testing.T) {
	cfg := defaults()
	cfg.LogVerbosity = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unrecognized verbosity")
	}
}
