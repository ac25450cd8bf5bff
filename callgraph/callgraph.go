// Package callgraph implements the Call Graph Builder (spec §4.8):
// identifier-scanning over every callable's verbatim content, resolved
// against the alias map and the project index, grounded algorithmically on
// build_call_graph in
// _examples/original_source/workflows/api_function_mapper.py.
package callgraph

import (
	"regexp"
	"strings"

	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
)

var (
	referenceRe  = regexp.MustCompile(`\b[A-Za-z_][\w.]*\b`)
	methodCallRe = regexp.MustCompile(`\.\b(\w+)\b\(`)
	selfCallRe   = regexp.MustCompile(`self\.(\w+)`)
)

// callable is one node eligible to appear as a caller or callee: a
// function, class or statement_block element, addressed by its file path
// and qualified name.
type callable struct {
	path string
	el   *model.Element
}

// Build walks every script-language callable in idx, scans its content for
// identifier references, resolves them against aliases (imported
// definitions and modules), local same-file definitions, imported-class
// method calls, and same-class self.method calls, and returns the
// resulting graph keyed by stable id. Self-edges are discarded and callee
// lists are sorted, per §4.8's final cleanup pass.
func Build(idx *index.Index, aliases model.AliasMap) *model.CallGraph {
	graph := model.NewCallGraph()

	var callables []callable
	for _, path := range idx.Paths() {
		rec := idx.FileByPath(path)
		if rec.LanguageTag != model.LanguageScript {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.QualifiedName == "" {
					return
				}
				if el.Kind != model.KindFunction && el.Kind != model.KindClass && el.Kind != model.KindStatementBlock {
					return
				}
				callables = append(callables, callable{path: rec.Path, el: el})
			})
		}
	}

	methodsByClass := methodsByClassQualifiedName(callables)

	for _, caller := range callables {
		if caller.el.Content == "" {
			continue
		}
		resolveDirectAndModuleRefs(idx, aliases, caller, graph)
		if caller.el.Kind == model.KindFunction {
			resolveImportedClassMethodCalls(idx, aliases, methodsByClass, caller, graph)
			resolveSelfMethodCalls(idx, caller, graph)
		}
	}

	return graph
}

// methodsByClassQualifiedName groups every callable whose qualified name
// is "<Class>.<method>" under its class's qualified name, mirroring the
// original's methods_by_class_id precomputation.
func methodsByClassQualifiedName(callables []callable) map[string][]callable {
	out := make(map[string][]callable)
	for _, c := range callables {
		if c.el.Kind != model.KindFunction {
			continue
		}
		if idx := strings.Index(c.el.QualifiedName, "."); idx >= 0 {
			className := c.el.QualifiedName[:idx]
			out[className] = append(out[className], c)
		}
	}
	return out
}

// resolveDirectAndModuleRefs implements phases 1 and 2: single-segment and
// dotted `A.B` references.
func resolveDirectAndModuleRefs(idx *index.Index, aliases model.AliasMap, caller callable, graph *model.CallGraph) {
	refs := uniqueMatches(referenceRe, caller.el.Content)
	for ref := range refs {
		parts := strings.Split(ref, ".")
		switch {
		case len(parts) == 1:
			if entry, ok := aliases[model.AliasKey{ImporterPath: caller.path, LocalName: ref}]; ok && entry.Kind == model.AliasDefinition {
				graph.AddEdge(caller.el.StableID, entry.Definition.StableID)
				continue
			}
			if def, ok := idx.Callable(caller.path, ref); ok {
				graph.AddEdge(caller.el.StableID, def.StableID)
			}
		case len(parts) > 1:
			moduleAlias, member := parts[0], parts[1]
			entry, ok := aliases[model.AliasKey{ImporterPath: caller.path, LocalName: moduleAlias}]
			if !ok || entry.Kind != model.AliasModule {
				continue
			}
			if def, ok := idx.Callable(entry.ModulePath, member); ok {
				graph.AddEdge(caller.el.StableID, def.StableID)
			}
		}
	}
}

// resolveImportedClassMethodCalls implements phase 3: `.method(` call
// sites resolved against every class this file imports as a definition.
func resolveImportedClassMethodCalls(idx *index.Index, aliases model.AliasMap, methodsByClass map[string][]callable, caller callable, graph *model.CallGraph) {
	var importedClasses []*model.Element
	for key, entry := range aliases {
		if key.ImporterPath == caller.path && entry.Kind == model.AliasDefinition && entry.Definition.Kind == model.KindClass {
			importedClasses = append(importedClasses, entry.Definition)
		}
	}
	if len(importedClasses) == 0 {
		return
	}

	methodNames := uniqueGroups(methodCallRe, caller.el.Content)
	for methodName := range methodNames {
		for _, cls := range importedClasses {
			for _, method := range methodsByClass[cls.QualifiedName] {
				if strings.HasSuffix(method.el.QualifiedName, "."+methodName) {
					graph.AddEdge(caller.el.StableID, method.el.StableID)
				}
			}
		}
	}
	_ = idx
}

// resolveSelfMethodCalls implements phase 4: `self.method` calls inside a
// method resolved to the sibling method of the same class in the same
// file.
func resolveSelfMethodCalls(idx *index.Index, caller callable, graph *model.CallGraph) {
	if !strings.Contains(caller.el.QualifiedName, ".") {
		return
	}
	className := caller.el.QualifiedName[:strings.Index(caller.el.QualifiedName, ".")]
	for methodName := range uniqueGroups(selfCallRe, caller.el.Content) {
		target := className + "." + methodName
		if def, ok := idx.Callable(caller.path, target); ok {
			graph.AddEdge(caller.el.StableID, def.StableID)
		}
	}
}

// BuildByNameMatch builds a call graph over every function/class element of
// the given language by a name-substring scan: callee B is a callee of
// caller A when B's bare name (its element Name with the " (Lline)" suffix
// stripped) appears as a whole word in A's content. This is the simpler,
// language-agnostic graph full_stack_tracer.py's own build_call_graph
// constructs (used there for both languages); Build above is reserved for
// the alias-resolved Python graph of §4.8. Used for the web-script side,
// where there is no import/alias model to resolve against.
func BuildByNameMatch(idx *index.Index, lang model.LanguageTag) *model.CallGraph {
	graph := model.NewCallGraph()

	type named struct {
		name    string
		pattern *regexp.Regexp
		el      *model.Element
	}
	var callables []named
	for _, path := range idx.Paths() {
		rec := idx.FileByPath(path)
		if rec.LanguageTag != lang {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.Kind != model.KindFunction && el.Kind != model.KindClass {
					return
				}
				name := bareName(el.Name)
				if name == "" || name == "(anonymous)" {
					return
				}
				callables = append(callables, named{name: name, pattern: wordBoundaryRe(name), el: el})
			})
		}
	}

	for _, caller := range callables {
		if caller.el.Content == "" {
			continue
		}
		for _, callee := range callables {
			if caller.el.StableID == callee.el.StableID {
				continue
			}
			if callee.pattern.MatchString(caller.el.Content) {
				graph.AddEdge(caller.el.StableID, callee.el.StableID)
			}
		}
	}
	return graph
}

func bareName(name string) string {
	if i := strings.Index(name, " (L"); i >= 0 {
		return name[:i]
	}
	return name
}

func wordBoundaryRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

func uniqueMatches(re *regexp.Regexp, content string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range re.FindAllString(content, -1) {
		out[m] = struct{}{}
	}
	return out
}

func uniqueGroups(re *regexp.Regexp, content string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		out[m[1]] = struct{}{}
	}
	return out
}
