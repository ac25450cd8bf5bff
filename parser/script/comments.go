package script

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/corelens/tracecore/model"
)

// commentBlocks finds comment-only lines not already covered by any
// element (including nested children) and merges consecutive such lines
// into single comment_block elements, mirroring the tokenize-based merge
// pass of the original parser. Lacking a Python tokenizer, a line is
// treated as comment-only when its stripped text begins with '#' — this
// does not distinguish a literal '#' inside a string from a real comment,
// a narrower approximation than the original's token stream.
func (w *walker) commentBlocks(elements []*model.Element) []*model.Element {
	covered := map[int]bool{}
	for _, el := range elements {
		el.Walk(func(e *model.Element) {
			for line := e.Location.StartLine; line <= e.Location.EndLine; line++ {
				covered[line] = true
			}
		})
	}

	var blocks []*model.Element
	var current *model.Element
	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(string(w.src)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if covered[lineNo] || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if current != nil && lineNo == current.Location.EndLine+1 {
			current.Location.EndLine = lineNo
			continue
		}
		current = &model.Element{
			Kind:     model.KindCommentBlock,
			Name:     fmt.Sprintf("%s (L%d)", trimmed, lineNo),
			Location: model.Location{StartLine: lineNo, EndLine: lineNo},
		}
		blocks = append(blocks, current)
	}
	return blocks
}
