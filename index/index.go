// Package index implements the Project Index (spec §4.6): secondary
// lookup structures built once over an enriched Project, used by every
// later stage instead of re-walking element trees.
package index

import (
	"fmt"
	"sort"

	"github.com/corelens/tracecore/internal/errs"
	"github.com/corelens/tracecore/model"
)

// key identifies a callable by the file it lives in and its qualified name.
type key struct {
	path          string
	qualifiedName string
}

// Index is the read-only lookup surface over a parsed Project: files by
// path, callables by (path, qualified_name), and the set of all file
// paths known to the project.
type Index struct {
	project  *model.Project
	files    map[string]*model.FileRecord
	elements map[key]*model.Element
}

// Build walks every file of proj and populates the lookup maps. It returns
// an error if two elements in the same file share (name, kind) — the
// "is_latest uniqueness" invariant of §4.6 — since only one can be the
// index entry addressed by that identity.
func Build(proj *model.Project) (*Index, error) {
	idx := &Index{
		project:  proj,
		files:    make(map[string]*model.FileRecord, len(proj.Files)),
		elements: make(map[key]*model.Element),
	}

	var dup *errs.InvariantViolation
	for _, rec := range proj.Files {
		idx.files[rec.Path] = rec
		perFile := make(map[string]bool)

		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if dup != nil {
					return
				}
				identity := fmt.Sprintf("%s\x00%s", el.Name, el.Kind)
				if perFile[identity] {
					dup = &errs.InvariantViolation{Detail: fmt.Sprintf("%s: duplicate (name, kind) %q/%s", rec.Path, el.Name, el.Kind)}
					return
				}
				perFile[identity] = true

				if el.QualifiedName == "" {
					return
				}
				idx.elements[key{path: rec.Path, qualifiedName: el.QualifiedName}] = el
			})
			if dup != nil {
				return nil, dup
			}
		}
	}

	return idx, nil
}

// FileByPath returns the FileRecord at path, or nil if the project has none.
func (idx *Index) FileByPath(path string) *model.FileRecord {
	return idx.files[path]
}

// HasFile reports whether path is a known file of the project.
func (idx *Index) HasFile(path string) bool {
	_, ok := idx.files[path]
	return ok
}

// Callable looks up a callable element by the file it lives in and its
// qualified name (e.g. "Widget.render").
func (idx *Index) Callable(path, qualifiedName string) (*model.Element, bool) {
	el, ok := idx.elements[key{path: path, qualifiedName: qualifiedName}]
	return el, ok
}

// Paths returns every known file path, sorted.
func (idx *Index) Paths() []string {
	out := make([]string, 0, len(idx.files))
	for p := range idx.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
