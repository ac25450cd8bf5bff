package model

import "strings"

// LanguageTag identifies the language family a FileRecord was parsed as.
type LanguageTag string

const (
	LanguageScript    LanguageTag = "script"
	LanguageWebScript LanguageTag = "web-script"
	LanguageMarkup    LanguageTag = "markup"
)

// FileRecord is the per-file output of a parse: its classification, its
// verbatim content, and the root Elements of its tree.
type FileRecord struct {
	Path         string      `json:"path"`
	LanguageTag  LanguageTag `json:"language_tag"`
	Checksum     [32]byte    `json:"-"`
	LineCount    int         `json:"loc"`
	Content      string      `json:"-"`
	Elements     []*Element  `json:"elements"`
}

// Lines splits Content into its source lines without trailing newlines,
// matching the slicing the Enricher uses to reconstruct element content.
func (f *FileRecord) Lines() []string {
	return splitLines(f.Content)
}

// UncoveredLines returns the 1-based line numbers that contain
// non-whitespace text but fall outside every element's line range,
// per invariant (ii): the covered line-set is the union of all element
// ranges, and lines outside it with non-whitespace are unparsed.
func (f *FileRecord) UncoveredLines() []int {
	lines := f.Lines()
	covered := make([]bool, len(lines)+1)
	for _, root := range f.Elements {
		root.Walk(func(el *Element) {
			for line := el.Location.StartLine; line <= el.Location.EndLine && line <= len(lines); line++ {
				if line >= 1 {
					covered[line] = true
				}
			}
		})
	}

	var uncovered []int
	for i, line := range lines {
		lineNo := i + 1
		if covered[lineNo] || strings.TrimSpace(line) == "" {
			continue
		}
		uncovered = append(uncovered, lineNo)
	}
	return uncovered
}

// Unparsed is the boolean form of testable property 4: true when any
// line fails coverage.
func (f *FileRecord) Unparsed() bool {
	return len(f.UncoveredLines()) > 0
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	return lines
}
