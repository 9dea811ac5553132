package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/leafprune/leafprune/internal/config"
	"github.com/leafprune/leafprune/internal/logger"
	"github.com/leafprune/leafprune/internal/module"
	"github.com/leafprune/leafprune/internal/stmt"
	"github.com/leafprune/leafprune/pkg/leafprune"
)

var (
	fixtureDir  string
	entryPoints []string
	configPath  string
	projectDir  string
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "leafprune",
	Short: "Run the leafprune tree-shaking core over a module graph",
	Long: `leafprune loads a module graph — either a toy built-in example or a
directory of ".json" module-graph fixtures — and reports which
statements in each module survive tree shaking.`,
	RunE: runShake,
}

func init() {
	rootCmd.Flags().StringVar(&fixtureDir, "dir", "", "directory of *.json module-graph fixtures (default: built-in example)")
	rootCmd.Flags().StringSliceVar(&entryPoints, "entry", nil, "entry point module path, may be repeated (default: built-in example's entry)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to .leafprunerc.yml")
	rootCmd.Flags().StringVar(&projectDir, "project-dir", ".", "directory to look for .leafprunerc.yml in when --config isn't set")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as one JSON object (modules and diagnostics) instead of colored text")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func runShake(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir, configPath)
	if err != nil {
		return err
	}

	var supply module.StaticSupply
	var entries []string

	if fixtureDir != "" {
		supply, err = loadFixtureDir(fixtureDir)
		if err != nil {
			return err
		}
		entries = entryPoints
		if len(entries) == 0 {
			return fmt.Errorf("--entry is required when --dir is set")
		}
	} else {
		supply = builtinExample()
		entries = entryPoints
		if len(entries) == 0 {
			entries = []string{"/src/index.js"}
		}
	}

	result := leafprune.Shake(leafprune.Options{
		Supply:      supply,
		EntryPoints: entries,
		Config:      cfg,
	})

	if jsonOutput {
		printResultJSON(cmd, supply, result, cfg.LogVerbosity)
	} else {
		printResult(cmd, supply, result, cfg.LogVerbosity)
	}

	if result.HasErrors() {
		return fmt.Errorf("shake completed with errors")
	}
	return nil
}

// jsonModuleResult is the --json output shape: one entry per module,
// naming the statement ids that survived rather than reproducing the
// full ident.Set liveness detail the colored printer shows.
type jsonModuleResult struct {
	Path           string `json:"path"`
	LiveStatements []int  `json:"liveStatements"`
	DeadStatements []int  `json:"deadStatements"`
}

func printResultJSON(cmd *cobra.Command, supply module.StaticSupply, result leafprune.Result, verbosity config.LogVerbosity) {
	var modules []jsonModuleResult
	if verbosity == config.VerbosityVerbose {
		paths := make([]string, 0, len(result.Liveness))
		for path := range result.Liveness {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		modules = make([]jsonModuleResult, 0, len(paths))
		for _, path := range paths {
			total := len(supply[path].Body)
			live := result.Liveness[path]
			mr := jsonModuleResult{Path: path}
			for id := 0; id < total; id++ {
				if _, ok := live[id]; ok {
					mr.LiveStatements = append(mr.LiveStatements, id)
				} else {
					mr.DeadStatements = append(mr.DeadStatements, id)
				}
			}
			modules = append(modules, mr)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		Modules     []jsonModuleResult `json:"modules"`
		Diagnostics []logger.Msg       `json:"diagnostics"`
	}{Modules: modules, Diagnostics: diagnosticsForVerbosity(result.Diagnostics, verbosity)})
}

func printResult(cmd *cobra.Command, supply module.StaticSupply, result leafprune.Result, verbosity config.LogVerbosity) {
	out := cmd.OutOrStdout()

	if verbosity == config.VerbosityVerbose {
		paths := make([]string, 0, len(result.Liveness))
		for path := range result.Liveness {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		bold := color.New(color.Bold)
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		for _, path := range paths {
			bold.Fprintln(out, path)
			total := len(supply[path].Body)
			live := result.Liveness[path]
			for id := 0; id < total; id++ {
				if set, ok := live[id]; ok {
					green.Fprintf(out, "  [live] stmt %d %v\n", id, set.Sorted())
				} else {
					red.Fprintf(out, "  [dead] stmt %d\n", id)
				}
			}
		}
	}

	for _, msg := range diagnosticsForVerbosity(result.Diagnostics, verbosity) {
		printer := color.New(color.FgYellow)
		if msg.Severity == logger.SeverityError {
			printer = color.New(color.FgRed, color.Bold)
		}
		printer.Fprintf(out, "%s: %s (%s, stmt %d)\n", msg.Kind, msg.Text, msg.ModulePath, msg.StmtId)
	}
}

// diagnosticsForVerbosity gates which diagnostics actually get printed:
// VerbositySilent suppresses all of them, VerbosityWarn and
// VerbosityVerbose both show everything collected (there's currently
// nothing below SeverityWarning to additionally filter out at the "warn"
// tier). An empty LogVerbosity (which config.Validate accepts) behaves
// like VerbosityWarn, config.defaults' own value.
func diagnosticsForVerbosity(msgs []logger.Msg, verbosity config.LogVerbosity) []logger.Msg {
	if verbosity == config.VerbositySilent {
		return nil
	}
	return msgs
}

// builtinExample is the toy module graph used when no --dir is given: an
// entry point importing one named export ("double") from a package that
// declares "sideEffects": false and also exports an unused one
// ("triple").
func builtinExample() module.StaticSupply {
	pkg := &module.PackageDescriptor{RawJSON: []byte(`{"sideEffects":false}`), Directory: "/node_modules/lib"}

	return module.StaticSupply{
		"/src/index.js": &module.Module{
			Path: "/src/index.js",
			Body: []stmt.Item{
				{
					Kind:   stmt.ItemImport,
					Source: "lib",
					ImportSpecs: []stmt.ImportSpecItem{
						{Kind: stmt.ImportNamed, Local: "double", Imported: "double"},
					},
				},
				{Kind: stmt.ItemExpression, IsCall: true, UsedNames: []string{"double"}},
			},
			ResolvedImports: map[string]module.ResolvedResource{
				"lib": {Resolved: &module.ResolvedModule{Path: "/node_modules/lib/index.js", Package: pkg}},
			},
		},
		"/node_modules/lib/index.js": &module.Module{
			Path: "/node_modules/lib/index.js",
			Body: []stmt.Item{
				{
					Kind:        stmt.ItemExport,
					ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "double"}},
					UsedNames:   []string{"inc"},
					Bindings:    []stmt.Binding{{Name: "double", DependsOn: []string{"inc"}}},
				},
				{
					Kind:     stmt.ItemDeclaration,
					Bindings: []stmt.Binding{{Name: "inc"}},
				},
				{
					Kind:        stmt.ItemExport,
					ExportSpecs: []stmt.ExportSpecItem{{Kind: stmt.ExportNamed, Local: "triple"}},
					UsedNames:   []string{"inc"},
					Bindings:    []stmt.Binding{{Name: "triple", DependsOn: []string{"inc"}}},
				},
				{Kind: stmt.ItemExpression, IsCall: true},
			},
		},
	}
}
