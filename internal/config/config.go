// Package config loads leafprune's project-level configuration file.
// Shaped after ingo-eichhorst-agent-readyness's internal/config: a
// small YAML file, optional, with a strict-decode-then-Validate step
// rather than hand-rolled flag parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogVerbosity controls how much internal/logger output a caller should
// surface; the core itself never reads this value, it exists purely to
// be threaded through to cmd/leafprune's own printing.
type LogVerbosity string

const (
	VerbositySilent  LogVerbosity = "silent"
	VerbosityWarn    LogVerbosity = "warn"
	VerbosityVerbose LogVerbosity = "verbose"
)

// ProjectConfig is leafprune's ".leafprunerc.yml" configuration surface —
// the one configuration surface the core actually reads.
type ProjectConfig struct {
	Version int `yaml:"version"`

	// SideEffectsKey overrides the package.json key the Side-Effect
	// Oracle reads (default "sideEffects"); some monorepo tooling
	// publishes the same data under a vendor-prefixed key.
	SideEffectsKey string `yaml:"sideEffectsKey"`

	// DisableTreeShaking forces every statement in every module to be
	// kept, bypassing internal/shaker's propagation phase entirely —
	// the emergency escape hatch for a manifest the oracle gets wrong.
	DisableTreeShaking bool `yaml:"disableTreeShaking"`

	LogVerbosity LogVerbosity `yaml:"logVerbosity"`
}

// defaults mirrors the zero-value behavior the rest of the core expects
// when no config file exists at all.
func defaults() *ProjectConfig {
	return &ProjectConfig{
		Version:        1,
		SideEffectsKey: "sideEffects",
		LogVerbosity:   VerbosityWarn,
	}
}

// Load reads ".leafprunerc.yml" (or ".leafprunerc.yaml") from dir, or
// explicitPath if given. A missing file is not an error — Load returns
// defaults() instead.
func Load(dir string, explicitPath string) (*ProjectConfig, error) {
	path := explicitPath
	if path == "" {
		ymlPath := filepath.Join(dir, ".leafprunerc.yml")
		yamlPath := filepath.Join(dir, ".leafprunerc.yaml")
		switch {
		case fileExists(ymlPath):
			path = ymlPath
		case fileExists(yamlPath):
			path = yamlPath
		default:
			return defaults(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks the decoded ProjectConfig for values the rest of the
// core can't recover from.
func (c *ProjectConfig) Validate() error {
	if c.Version != 0 && c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	if c.SideEffectsKey == "" {
		return fmt.Errorf("sideEffectsKey must not be empty")
	}
	switch c.LogVerbosity {
	case "", VerbositySilent, VerbosityWarn, VerbosityVerbose:
	default:
		return fmt.Errorf("unrecognized logVerbosity %q", c.LogVerbosity)
	}
	return nil
}
