package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corelens/tracecore/model"
)

func TestUncoveredLinesReportsNonWhitespaceOutsideElementRanges(t *testing.T) {
	content := "import os\n\nx = 1\n\ndef f():\n    return 1\n"
	fn := &model.Element{Kind: model.KindFunction, Location: model.Location{StartLine: 5, EndLine: 6}}
	imp := &model.Element{Kind: model.KindImport, Location: model.Location{StartLine: 1, EndLine: 1}}
	rec := &model.FileRecord{Content: content, Elements: []*model.Element{imp, fn}}

	uncovered := rec.UncoveredLines()
	assert.Equal(t, []int{3}, uncovered, "line 3 (\"x = 1\") has non-whitespace and no covering element")
	assert.True(t, rec.Unparsed())
}

func TestUncoveredLinesEmptyWhenFullyCovered(t *testing.T) {
	content := "import os\n\ndef f():\n    return 1\n"
	imp := &model.Element{Kind: model.KindImport, Location: model.Location{StartLine: 1, EndLine: 1}}
	fn := &model.Element{Kind: model.KindFunction, Location: model.Location{StartLine: 3, EndLine: 4}}
	rec := &model.FileRecord{Content: content, Elements: []*model.Element{imp, fn}}

	assert.Empty(t, rec.UncoveredLines())
	assert.False(t, rec.Unparsed())
}
