// Package enrich implements the Element Enricher (spec §4.5): it attaches
// verbatim source content to every element in a file's tree, strips
// parser-internal scratch fields, and validates the structural invariants
// the rest of the pipeline relies on.
package enrich

import (
	"fmt"
	"strings"

	"github.com/corelens/tracecore/internal/errs"
	"github.com/corelens/tracecore/model"
)

// File enriches every element of rec in place: content, stable ids, and
// invariant checks. It recovers an InvariantViolation panic raised deep in
// the walk and returns it as a regular error. Elements visited before the
// violation keep the content and stable ids already attached to them.
func File(rec *model.FileRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*errs.InvariantViolation); ok {
				err = iv
				return
			}
			panic(r)
		}
	}()

	lines := rec.Lines()
	for _, root := range rec.Elements {
		enrichElement(root, rec.Path, lines, len(lines))
	}
	return nil
}

func enrichElement(el *model.Element, path string, lines []string, fileLineCount int) {
	loc := el.Location
	if !loc.Valid() {
		panic(&errs.InvariantViolation{Detail: fmt.Sprintf("%s: element %q has an invalid range [%d,%d]", path, el.Name, loc.StartLine, loc.EndLine)})
	}
	if loc.StartLine > fileLineCount || loc.EndLine > fileLineCount {
		panic(&errs.InvariantViolation{Detail: fmt.Sprintf("%s: element %q range [%d,%d] exceeds file length %d", path, el.Name, loc.StartLine, loc.EndLine, fileLineCount)})
	}

	el.Content = strings.Join(lines[loc.StartLine-1:loc.EndLine], "\n")
	el.ScratchRef = nil

	qualifiedName := el.QualifiedName
	if qualifiedName == "" {
		qualifiedName = el.Name
	}
	el.StableID = model.StableID(path, qualifiedName, el.Kind, el.Content)

	for _, child := range el.Children {
		if child.Location.StartLine < loc.StartLine || child.Location.EndLine > loc.EndLine {
			panic(&errs.InvariantViolation{Detail: fmt.Sprintf("%s: child %q [%d,%d] escapes parent %q [%d,%d]", path, child.Name, child.Location.StartLine, child.Location.EndLine, el.Name, loc.StartLine, loc.EndLine)})
		}
		enrichElement(child, path, lines, fileLineCount)
	}
}
