package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/resolve"
)

func TestBuildResolvesFromImportToDefinition(t *testing.T) {
	def := &model.Element{Kind: model.KindFunction, Name: "get_db_connection (L1)", QualifiedName: "get_db_connection", Location: model.Location{StartLine: 1, EndLine: 2}}
	imp := &model.Element{Kind: model.KindImport, Name: "from core.database import get_db_connection (L1)", Location: model.Location{StartLine: 1, EndLine: 1}}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "core/database.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{def}},
		{Path: "app/routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{imp}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)

	aliases := resolve.Build(idx, nil)
	entry, ok := aliases[model.AliasKey{ImporterPath: "app/routes.py", LocalName: "get_db_connection"}]
	require.True(t, ok)
	assert.Equal(t, model.AliasDefinition, entry.Kind)
	assert.Same(t, def, entry.Definition)
}

func TestBuildResolvesPlainImportToModule(t *testing.T) {
	imp := &model.Element{Kind: model.KindImport, Name: "import core.database as db (L1)", Location: model.Location{StartLine: 1, EndLine: 1}}
	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "core/database.py", LanguageTag: model.LanguageScript},
		{Path: "app/routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{imp}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)

	aliases := resolve.Build(idx, nil)
	entry, ok := aliases[model.AliasKey{ImporterPath: "app/routes.py", LocalName: "db"}]
	require.True(t, ok)
	assert.Equal(t, model.AliasModule, entry.Kind)
	assert.Equal(t, "core/database.py", entry.ModulePath)
}

func TestBuildDropsUnresolvableImport(t *testing.T) {
	imp := &model.Element{Kind: model.KindImport, Name: "from nowhere import missing (L1)", Location: model.Location{StartLine: 1, EndLine: 1}}
	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "app/routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{imp}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)

	aliases := resolve.Build(idx, nil)
	assert.Empty(t, aliases)
}
