// Package resolve implements the Alias Resolver (spec §4.7): it turns each
// file's import statements into an AliasMap of (importer, local name) →
// either a known Element definition or a known module path, grounded
// algorithmically on build_alias_map/resolve_module_path in
// _examples/original_source/workflows/api_function_mapper.py.
package resolve

import (
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/internal/errs"
	"github.com/corelens/tracecore/internal/xlog"
	"github.com/corelens/tracecore/model"
)

const scriptExt = ".py"

var (
	fromImportRe = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)$`)
	plainImportRe = regexp.MustCompile(`^import\s+([\w.]+)(?:\s+as\s+(\w+))?$`)
	aliasPartRe  = regexp.MustCompile(`^(\w+)\s+as\s+(\w+)$`)
)

// Build scans every script-language import element in idx and resolves it
// against idx's known files and callables, returning the aggregate alias
// map. Imports that cannot be resolved are logged via log and omitted,
// matching the original's "drop with a warning" behavior — never fatal.
func Build(idx *index.Index, log xlog.Logger) model.AliasMap {
	if log == nil {
		log = xlog.Nop
	}
	aliasMap := make(model.AliasMap)
	knownPaths := idx.Paths()

	for _, p := range knownPaths {
		rec := idx.FileByPath(p)
		if rec.LanguageTag != model.LanguageScript {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.Kind != model.KindImport {
					return
				}
				resolveImport(idx, log, rec.Path, stripLineSuffix(el.Name), knownPaths, aliasMap)
			})
		}
	}
	return aliasMap
}

func stripLineSuffix(name string) string {
	if i := strings.Index(name, " (L"); i >= 0 {
		return name[:i]
	}
	return name
}

func resolveImport(idx *index.Index, log xlog.Logger, importerPath, stmt string, knownPaths []string, aliasMap model.AliasMap) {
	if m := fromImportRe.FindStringSubmatch(stmt); m != nil {
		moduleStr, namesStr := m[1], m[2]
		resolvedPath := resolveModulePath(importerPath, moduleStr, knownPaths)
		for _, namePart := range strings.Split(namesStr, ",") {
			namePart = strings.TrimSpace(namePart)
			originalName, aliasName := namePart, namePart
			if am := aliasPartRe.FindStringSubmatch(namePart); am != nil {
				originalName, aliasName = am[1], am[2]
			}

			key := model.AliasKey{ImporterPath: importerPath, LocalName: aliasName}
			if def, ok := idx.Callable(resolvedPath, originalName); ok {
				aliasMap[key] = model.AliasEntry{Kind: model.AliasDefinition, Definition: def}
				continue
			}
			packageModulePath := path.Join(resolvedPath, originalName+scriptExt)
			if idx.HasFile(packageModulePath) {
				aliasMap[key] = model.AliasEntry{Kind: model.AliasModule, ModulePath: packageModulePath}
				continue
			}
			log.Warnf("%v", &errs.UnresolvedImport{ImporterPath: importerPath, ModuleOrName: moduleStr + "." + originalName})
		}
		return
	}

	if m := plainImportRe.FindStringSubmatch(stmt); m != nil {
		moduleStr, alias := m[1], m[2]
		if alias == "" {
			segments := strings.Split(moduleStr, ".")
			alias = segments[len(segments)-1]
		}
		resolvedPath := resolveModulePath(importerPath, moduleStr, knownPaths)
		aliasMap[model.AliasKey{ImporterPath: importerPath, LocalName: alias}] = model.AliasEntry{Kind: model.AliasModule, ModulePath: resolvedPath}
		return
	}

	log.Warnf("%v", &errs.UnresolvedImport{ImporterPath: importerPath, ModuleOrName: stmt})
}

// resolveModulePath resolves a dotted module string to a file path,
// relative to importerPath for leading-dot (relative) imports, or by
// dot-to-separator substitution for absolute imports. An absolute module
// gets the script extension only when that file exists among knownPaths;
// otherwise the separator-joined path is returned without an extension,
// so a from-import can still name a module file inside that package.
func resolveModulePath(importerPath, moduleStr string, knownPaths []string) string {
	if strings.HasPrefix(moduleStr, ".") {
		trimmed := strings.TrimLeft(moduleStr, ".")
		levelsUp := len(moduleStr) - len(trimmed)
		segments := strings.Split(trimmed, ".")
		if trimmed == "" {
			segments = nil
		}

		dirParts := strings.Split(importerPath, string(os.PathSeparator))
		cut := len(dirParts) - levelsUp
		if cut < 0 {
			cut = 0
		}
		base := dirParts[:cut]

		all := append(append([]string{}, base...), segments...)
		return path.Join(all...) + scriptExt
	}

	asFile := strings.ReplaceAll(moduleStr, ".", string(os.PathSeparator)) + scriptExt
	for _, p := range knownPaths {
		if p == asFile {
			return asFile
		}
	}
	return strings.ReplaceAll(moduleStr, ".", string(os.PathSeparator))
}
