// Package leafprune exposes the tree-shaking core as a library, the way
// github.com/evanw/esbuild/pkg/api wraps esbuild's own internal bundler:
// a single entry-point function taking a small options struct and
// returning a result struct. The fields of Options and Result use the
// internal/ packages' own types (module.Supply, config.ProjectConfig,
// propagate.Liveness, logger.Msg).
//
// Example usage, with mySupply a module.StaticSupply:
//
//	package main
//
//	import (
//	    "fmt"
//
//	    "github.com/leafprune/leafprune/pkg/leafprune"
//	)
//
//	func main() {
//	    result := leafprune.Shake(leafprune.Options{
//	        Supply:      mySupply,
//	        EntryPoints: []string{"/src/index.js"},
//	    })
//
//	    for path := range result.Liveness {
//	        dead := result.DeadStatements(path, len(mySupply[path].Body))
//	        fmt.Printf("%s: %d dead statements\n", path, len(dead))
//	    }
//	}
package leafprune

import (
	"github.com/leafprune/leafprune/internal/config"
	"github.com/leafprune/leafprune/internal/logger"
	"github.com/leafprune/leafprune/internal/module"
	"github.com/leafprune/leafprune/internal/propagate"
	"github.com/leafprune/leafprune/internal/shaker"
)

// Options is a Shake request's input side.
type Options struct {
	// Supply answers get_module(path) for every module reachable from
	// EntryPoints. Required.
	Supply module.Supply

	// EntryPoints are the module paths the program actually runs from;
	// every statement they themselves contain is always kept, and their
	// own export surface (if any) seeds the whole-graph liveness
	// fixpoint (internal/shaker's entry-point seeding).
	EntryPoints []string

	// Config is the project's ".leafprunerc.yml" surface. A nil Config
	// is equivalent to config.Load finding no file: every default
	// applies, including DisableTreeShaking = false.
	Config *config.ProjectConfig
}

// Result is a Shake request's output side: per-module liveness plus
// every diagnostic collected along the way. Diagnostics never abort a
// Shake call — callers that want fatal behavior should check
// Result.HasErrors().
type Result struct {
	Liveness    map[string]propagate.Liveness
	Diagnostics []logger.Msg
}

// HasErrors reports whether any diagnostic in the result is
// SeverityError (InvariantViolation, MalformedImport or MalformedExport).
func (r Result) HasErrors() bool {
	for _, msg := range r.Diagnostics {
		if msg.Severity == logger.SeverityError {
			return true
		}
	}
	return false
}

// DeadStatements returns, for one module, the statement ids in
// [0, totalStatements) that are not part of that module's liveness map
// at all — i.e. the
// statements a bundler consuming this result should actually drop.
// Liveness itself instead answers the finer question of exactly which
// defined idents within a kept statement are live; most callers
// integrating a tree-shaker only need the coarser drop/keep verdict
// this provides.
func (r Result) DeadStatements(modulePath string, totalStatements int) []int {
	live := r.Liveness[modulePath]
	var dead []int
	for id := 0; id < totalStatements; id++ {
		if _, ok := live[id]; !ok {
			dead = append(dead, id)
		}
	}
	return dead
}

// Shake runs the whole tree-shaking pipeline over opts.Supply starting
// from opts.EntryPoints.
//
// When opts.Config.DisableTreeShaking is set, every module reachable
// from the entry points is still discovered (so Result.Liveness has an
// entry for each), but every one of its statements is reported live —
// the supported "oracle got the manifest wrong, bail out" escape hatch
// (internal/config's own doc comment).
func Shake(opts Options) Result {
	log := logger.NewDeferLog()

	if opts.Config != nil && opts.Config.DisableTreeShaking {
		return shakeWithTreeShakingDisabled(opts, log)
	}

	res := shaker.Shake(opts.Supply, opts.EntryPoints, sideEffectsKey(opts.Config), log)
	return Result{Liveness: res.Liveness, Diagnostics: res.Diagnostics}
}

// sideEffectsKey resolves the package.json key the Side-Effect Oracle
// should read: cfg.SideEffectsKey when a config was loaded, else the same
// "sideEffects" default config.Load itself falls back to when no
// ".leafprunerc.yml" exists.
func sideEffectsKey(cfg *config.ProjectConfig) string {
	if cfg == nil || cfg.SideEffectsKey == "" {
		return "sideEffects"
	}
	return cfg.SideEffectsKey
}

// shakeWithTreeShakingDisabled walks the module graph itself (a plain
// BFS over ResolvedImports, the same traversal internal/shaker's own
// discovery performs) and reports every statement in every reachable
// module as live, never invoking internal/propagate or
// internal/sideeffect at all.
func shakeWithTreeShakingDisabled(opts Options, log logger.Log) Result {
	liveness := map[string]propagate.Liveness{}
	seen := map[string]bool{}
	queue := append([]string(nil), opts.EntryPoints...)

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if seen[path] {
			continue
		}
		seen[path] = true

		mod, err := opts.Supply.Module(path)
		if err != nil {
			log.AddMsg(logger.Msg{Kind: logger.UnresolvableModule, Severity: logger.SeverityWarning, ModulePath: path, StmtId: -1, Text: err.Error()})
			continue
		}

		all := propagate.Liveness{}
		for id := range mod.Body {
			all[id] = nil
		}
		liveness[path] = all

		for _, item := range mod.Body {
			if item.Source == "" {
				continue
			}
			resource, ok := mod.ResolvedImports[item.Source]
			if !ok || resource.IsExternal() {
				continue
			}
			queue = append(queue, resource.Resolved.Path)
		}
	}

	return Result{Liveness: liveness, Diagnostics: log.Done()}
}
