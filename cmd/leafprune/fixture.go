package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leafprune/leafprune/internal/module"
	"github.com/leafprune/leafprune/internal/stmt"
)

// fixtureModule is the on-disk JSON shape a ".json" module-graph fixture
// file decodes into — a toy stand-in for the real parser/resolver
// front-end, which lives outside this core's scope. One file per
// module; the file name is not significant, so a whole graph is just a
// directory of files referencing each other by the "path" each
// declares.
type fixtureModule struct {
	Path            string                     `json:"path"`
	Body            []fixtureItem              `json:"body"`
	ResolvedImports map[string]fixtureResource `json:"resolvedImports"`
}

type fixtureItem struct {
	Kind                string              `json:"kind"`
	Source              string              `json:"source"`
	ImportSpecs         []fixtureImportSpec `json:"importSpecs"`
	ExportSpecs         []fixtureExportSpec `json:"exportSpecs"`
	ExportStarNames     []string            `json:"exportStarNames"`
	Bindings            []fixtureBinding    `json:"bindings"`
	UsedNames           []string            `json:"usedNames"`
	IsCall              bool                `json:"isCall"`
	HasObservableEffect bool                `json:"hasObservableEffect"`
}

type fixtureImportSpec struct {
	Kind     string `json:"kind"`
	Local    string `json:"local"`
	Imported string `json:"imported"`
}

type fixtureExportSpec struct {
	Kind     string `json:"kind"`
	Local    string `json:"local"`
	Exported string `json:"exported"`
	Alias    string `json:"alias"`
}

type fixtureBinding struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"dependsOn"`
}

type fixtureResource struct {
	Path     string          `json:"path"`     // set for a resource resolved to another module in the graph
	External string          `json:"external"` // set for a resource resolved outside the graph
	Package  *fixturePackage `json:"package"`
}

type fixturePackage struct {
	Directory   string          `json:"directory"`
	SideEffects json.RawMessage `json:"sideEffects"`
}

var itemKinds = map[string]stmt.ItemKind{
	"import":      stmt.ItemImport,
	"export":      stmt.ItemExport,
	"declaration": stmt.ItemDeclaration,
	"expression":  stmt.ItemExpression,
	"other":       stmt.ItemOther,
	"unknown":     stmt.ItemUnknown,
}

var importSpecKinds = map[string]stmt.ImportSpecifierKind{
	"namespace": stmt.ImportNamespace,
	"named":     stmt.ImportNamed,
	"default":   stmt.ImportDefault,
}

var exportSpecKinds = map[string]stmt.ExportSpecifierKind{
	"all":       stmt.ExportAll,
	"named":     stmt.ExportNamed,
	"default":   stmt.ExportDefault,
	"namespace": stmt.ExportNamespace,
}

// loadFixtureDir decodes every "*.json" file in dir into a module.Module
// and assembles a module.StaticSupply keyed by each module's own
// declared path (not the file name, so fixture authors are free to
// organize files however they like).
func loadFixtureDir(dir string) (module.StaticSupply, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir %s: %w", dir, err)
	}

	supply := module.StaticSupply{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}
		var fm fixtureModule
		if err := json.Unmarshal(data, &fm); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", path, err)
		}
		mod, err := fm.toModule()
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
		supply[mod.Path] = mod
	}

	return supply, nil
}

func (fm fixtureModule) toModule() (*module.Module, error) {
	mod := &module.Module{
		Path:            fm.Path,
		ResolvedImports: map[string]module.ResolvedResource{},
	}

	for source, r := range fm.ResolvedImports {
		resource := module.ResolvedResource{}
		switch {
		case r.External != "":
			resource.External = &module.ExternalImport{Source: source, ExternalName: r.External}
		case r.Path != "":
			resolved := &module.ResolvedModule{Path: r.Path}
			if r.Package != nil {
				resolved.Package = &module.PackageDescriptor{
					Directory: r.Package.Directory,
					RawJSON:   packageRawJSON(r.Package.SideEffects),
				}
			}
			resource.Resolved = resolved
		default:
			return nil, fmt.Errorf("resolvedImports[%q] has neither path nor external", source)
		}
		mod.ResolvedImports[source] = resource
	}

	for i, item := range fm.Body {
		kind, ok := itemKinds[item.Kind]
		if !ok {
			return nil, fmt.Errorf("body[%d]: unrecognized kind %q", i, item.Kind)
		}
		converted, err := item.toItem(kind)
		if err != nil {
			return nil, fmt.Errorf("body[%d]: %w", i, err)
		}
		mod.Body = append(mod.Body, converted)
	}

	return mod, nil
}

func packageRawJSON(sideEffects json.RawMessage) json.RawMessage {
	if len(sideEffects) == 0 {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(`{"sideEffects":` + string(sideEffects) + `}`)
}

func (item fixtureItem) toItem(kind stmt.ItemKind) (stmt.Item, error) {
	out := stmt.Item{
		Kind:                kind,
		Source:              item.Source,
		ExportStarNames:     item.ExportStarNames,
		UsedNames:           item.UsedNames,
		IsCall:              item.IsCall,
		HasObservableEffect: item.HasObservableEffect,
	}

	for _, b := range item.Bindings {
		out.Bindings = append(out.Bindings, stmt.Binding{Name: b.Name, DependsOn: b.DependsOn})
	}

	for _, s := range item.ImportSpecs {
		k, ok := importSpecKinds[s.Kind]
		if !ok {
			return stmt.Item{}, fmt.Errorf("unrecognized import specifier kind %q", s.Kind)
		}
		out.ImportSpecs = append(out.ImportSpecs, stmt.ImportSpecItem{Kind: k, Local: s.Local, Imported: s.Imported})
	}

	for _, s := range item.ExportSpecs {
		k, ok := exportSpecKinds[s.Kind]
		if !ok {
			return stmt.Item{}, fmt.Errorf("unrecognized export specifier kind %q", s.Kind)
		}
		out.ExportSpecs = append(out.ExportSpecs, stmt.ExportSpecItem{Kind: k, Local: s.Local, Exported: s.Exported, Alias: s.Alias})
	}

	return out, nil
}
