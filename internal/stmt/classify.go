package stmt

import "github.com/leafprune/leafprune/internal/ident"

// Classify turns a single neutral body Item into its Descriptor in one
// pass, classifying import/export/ordinary, extracting declared names,
// recording every reference, and populating the per-binding dependency
// map for destructured/multi-name declarations.
//
// unresolvedCtxt is accepted for interface parity with the module-level
// context a front-end threads through construction (used upstream by
// the parser to tell references to globals apart from references to local
// bindings); this core never needs to dereference it itself since the
// front-end has already resolved that distinction into UsedNames before
// Item reaches here.
func Classify(id StatementId, item Item, unresolvedCtxt ident.Ident) Descriptor {
	d := Descriptor{
		Id:               id,
		DefinedIdents:    ident.Set{},
		UsedIdents:       ident.Set{},
		DefinedIdentsMap: map[ident.Ident]ident.Set{},
	}

	for _, raw := range item.UsedNames {
		d.UsedIdents = d.UsedIdents.Add(ident.Strip(raw))
	}

	switch item.Kind {
	case ItemImport:
		classifyImport(&d, item)
	case ItemExport:
		classifyExport(&d, item)
	case ItemDeclaration:
		classifyDeclaration(&d, item)
	case ItemExpression:
		d.IsSelfExecuted = item.IsCall
		d.HasSideEffects = item.HasObservableEffect || item.IsCall
	case ItemOther:
		d.HasSideEffects = item.HasObservableEffect
	default:
		// Unknown forms default to the conservative overapproximation:
		// classification must always succeed, but an unrecognized shape is
		// assumed to run for effect and to be unsafe to drop.
		d.IsSelfExecuted = true
		d.HasSideEffects = true
	}

	return d
}

func classifyImport(d *Descriptor, item Item) {
	facet := &ImportFacet{Source: item.Source}
	for _, spec := range item.ImportSpecs {
		local := ident.Strip(spec.Local)
		imported := local
		if spec.Kind == ImportNamed && spec.Imported != "" {
			imported = ident.Strip(spec.Imported)
		}
		facet.Specifiers = append(facet.Specifiers, ImportSpecifier{
			Kind:     ImportSpecifierKind(spec.Kind),
			Local:    local,
			Imported: imported,
		})
		d.DefinedIdents = d.DefinedIdents.Add(local)
	}
	d.Import = facet

	// A bare `import 'x'` (no specifiers) exists purely to run the target
	// module for effect; evaluating it always does work and is never safe
	// to assume side-effect-free on its own terms (the Side-Effect Oracle
	// still gets the final say via the target module's manifest).
	if len(facet.Specifiers) == 0 {
		d.IsSelfExecuted = true
		d.HasSideEffects = true
	}
}

func classifyExport(d *Descriptor, item Item) {
	facet := &ExportFacet{Source: item.Source}

	for _, spec := range item.ExportSpecs {
		switch spec.Kind {
		case ExportNamed:
			exported := ident.Strip(spec.Local)
			if spec.Exported != "" {
				exported = ident.Strip(spec.Exported)
			}
			facet.Specifiers = append(facet.Specifiers, ExportSpecifier{
				Kind:     ExportNamed,
				Local:    ident.Strip(spec.Local),
				Exported: exported,
			})
			// A plain re-surfacing export (no inline declaration behind
			// it) merely uses the local name it forwards; the statement
			// that actually defines it is discovered via the statement
			// graph, not here.
			if item.Source == "" && len(item.Bindings) == 0 {
				d.UsedIdents = d.UsedIdents.Add(ident.Strip(spec.Local))
			}
		case ExportDefault:
			local := ident.Ident("")
			if spec.Local != "" {
				local = ident.Strip(spec.Local)
			}
			facet.Specifiers = append(facet.Specifiers, ExportSpecifier{Kind: ExportDefault, Local: local})
			if item.Source == "" && len(item.Bindings) == 0 && local != "" {
				d.UsedIdents = d.UsedIdents.Add(local)
			}
		case ExportNamespace:
			facet.Specifiers = append(facet.Specifiers, ExportSpecifier{Kind: ExportNamespace, Alias: ident.Strip(spec.Alias)})
		case ExportAll:
			var names []ident.Ident
			for _, n := range item.ExportStarNames {
				names = append(names, ident.Strip(n))
			}
			facet.Specifiers = append(facet.Specifiers, ExportSpecifier{Kind: ExportAll, Names: names})
		}
	}

	d.Export = facet

	if len(item.Bindings) > 0 {
		classifyDeclaration(d, item)
	}
}

func classifyDeclaration(d *Descriptor, item Item) {
	for _, b := range item.Bindings {
		name := ident.Strip(b.Name)
		d.DefinedIdents = d.DefinedIdents.Add(name)
		deps := ident.Set{}
		for _, dep := range b.DependsOn {
			deps = deps.Add(ident.Strip(dep))
		}
		if len(deps) > 0 {
			if existing, ok := d.DefinedIdentsMap[name]; ok {
				d.DefinedIdentsMap[name] = existing.Union(deps)
			} else {
				d.DefinedIdentsMap[name] = deps
			}
		}
	}
	d.IsSelfExecuted = item.IsCall
	d.HasSideEffects = item.HasObservableEffect || item.IsCall
}
