package enrich_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/enrich"
	"github.com/corelens/tracecore/model"
)

func TestFileAttachesContentAndStableID(t *testing.T) {
	rec := &model.FileRecord{
		Path:    "app/main.py",
		Content: "def a():\n    return 1\n",
		Elements: []*model.Element{
			{
				Kind:          model.KindFunction,
				Name:          "a (L1)",
				QualifiedName: "a",
				Location:      model.Location{StartLine: 1, EndLine: 2},
				ScratchRef:    "scratch",
			},
		},
	}

	require.NoError(t, enrich.File(rec))

	el := rec.Elements[0]
	assert.Equal(t, "def a():\n    return 1", el.Content)
	assert.Nil(t, el.ScratchRef)
	assert.NotEmpty(t, el.StableID)
}

func TestFileIsDeterministic(t *testing.T) {
	newRec := func() *model.FileRecord {
		return &model.FileRecord{
			Path:    "app/main.py",
			Content: "def a():\n    return 1\n",
			Elements: []*model.Element{
				{Kind: model.KindFunction, Name: "a (L1)", QualifiedName: "a", Location: model.Location{StartLine: 1, EndLine: 2}},
			},
		}
	}

	first, second := newRec(), newRec()
	require.NoError(t, enrich.File(first))
	require.NoError(t, enrich.File(second))
	assert.Equal(t, first.Elements[0].StableID, second.Elements[0].StableID)
}

func TestFileRejectsChildOutsideParentRange(t *testing.T) {
	rec := &model.FileRecord{
		Path:    "app/main.py",
		Content: "def a():\n    return 1\n",
		Elements: []*model.Element{
			{
				Kind:     model.KindFunction,
				Name:     "a (L1)",
				Location: model.Location{StartLine: 1, EndLine: 1},
				Children: []*model.Element{
					{Kind: model.KindStatementBlock, Name: "return 1 (L2)", Location: model.Location{StartLine: 2, EndLine: 2}},
				},
			},
		},
	}

	err := enrich.File(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes parent")
}

func TestFileRejectsRangeBeyondFileLength(t *testing.T) {
	rec := &model.FileRecord{
		Path:    "app/main.py",
		Content: "x = 1\n",
		Elements: []*model.Element{
			{Kind: model.KindVariableDefinition, Name: "x = 1 (L1)", Location: model.Location{StartLine: 1, EndLine: 5}},
		},
	}

	err := enrich.File(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds file length")
}
