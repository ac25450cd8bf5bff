package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
)

func sampleProject() *model.Project {
	fn := &model.Element{
		Kind:          model.KindFunction,
		Name:          "read_user (L3)",
		QualifiedName: "read_user",
		Location:      model.Location{StartLine: 3, EndLine: 4},
	}
	return &model.Project{
		Name: "app",
		Files: []*model.FileRecord{
			{Path: "routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{fn}},
		},
	}
}

func TestBuildLooksUpFilesAndCallables(t *testing.T) {
	idx, err := index.Build(sampleProject())
	require.NoError(t, err)

	assert.True(t, idx.HasFile("routes.py"))
	assert.False(t, idx.HasFile("missing.py"))

	el, ok := idx.Callable("routes.py", "read_user")
	require.True(t, ok)
	assert.Equal(t, "read_user (L3)", el.Name)

	_, ok = idx.Callable("routes.py", "nope")
	assert.False(t, ok)
}

func TestBuildRejectsDuplicateNameKind(t *testing.T) {
	dupe := &model.Element{Kind: model.KindFunction, Name: "read_user (L3)", Location: model.Location{StartLine: 3, EndLine: 4}}
	proj := sampleProject()
	proj.Files[0].Elements = append(proj.Files[0].Elements, dupe)

	_, err := index.Build(proj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestPathsIsSorted(t *testing.T) {
	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "b.py"}, {Path: "a.py"},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, idx.Paths())
}
