package callgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/callgraph"
	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/resolve"
)

func TestBuildResolvesLocalCall(t *testing.T) {
	helper := &model.Element{Kind: model.KindFunction, Name: "helper (L1)", QualifiedName: "helper", Location: model.Location{StartLine: 1, EndLine: 2}, Content: "def helper():\n    return 1", StableID: "helper-id"}
	caller := &model.Element{Kind: model.KindFunction, Name: "read_user (L4)", QualifiedName: "read_user", Location: model.Location{StartLine: 4, EndLine: 5}, Content: "def read_user():\n    return helper()", StableID: "caller-id"}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "app.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{helper, caller}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	aliases := resolve.Build(idx, nil)

	graph := callgraph.Build(idx, aliases)
	assert.Equal(t, []string{"helper-id"}, graph.Callees("caller-id"))
	assert.Equal(t, []string{"caller-id"}, graph.Callers("helper-id"))
}

func TestBuildResolvesSelfMethodCall(t *testing.T) {
	a := &model.Element{Kind: model.KindFunction, Name: "Widget.a (L2)", QualifiedName: "Widget.a", Location: model.Location{StartLine: 2, EndLine: 3}, Content: "def a(self):\n    return self.b()", StableID: "a-id"}
	b := &model.Element{Kind: model.KindFunction, Name: "Widget.b (L4)", QualifiedName: "Widget.b", Location: model.Location{StartLine: 4, EndLine: 5}, Content: "def b(self):\n    return 1", StableID: "b-id"}
	cls := &model.Element{Kind: model.KindClass, Name: "Widget (L1)", QualifiedName: "Widget", Location: model.Location{StartLine: 1, EndLine: 5}, Content: "class Widget:\n    def a(self):\n        return self.b()\n    def b(self):\n        return 1", Children: []*model.Element{a, b}}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "widget.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{cls}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	aliases := resolve.Build(idx, nil)

	graph := callgraph.Build(idx, aliases)
	assert.Equal(t, []string{"b-id"}, graph.Callees("a-id"))
}

func TestBuildByNameMatchResolvesJSCall(t *testing.T) {
	handler := &model.Element{Kind: model.KindFunction, Name: "handleSubmit", Location: model.Location{StartLine: 1, EndLine: 2}, Content: "function handleSubmit() {\n  validate();\n}", StableID: "handle-id"}
	validate := &model.Element{Kind: model.KindFunction, Name: "validate", Location: model.Location{StartLine: 4, EndLine: 5}, Content: "function validate() {\n  return true;\n}", StableID: "validate-id"}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "app.js", LanguageTag: model.LanguageWebScript, Elements: []*model.Element{handler, validate}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)

	graph := callgraph.BuildByNameMatch(idx, model.LanguageWebScript)
	assert.Equal(t, []string{"validate-id"}, graph.Callees("handle-id"))
}

func TestBuildIncludesStatementBlockAsCallerNode(t *testing.T) {
	helper := &model.Element{Kind: model.KindFunction, Name: "helper (L1)", QualifiedName: "helper", Location: model.Location{StartLine: 1, EndLine: 2}, Content: "def helper():\n    return 1", StableID: "helper-id"}
	block := &model.Element{Kind: model.KindStatementBlock, Name: "helper() (L4)", QualifiedName: "helper()@L4", Location: model.Location{StartLine: 4, EndLine: 4}, Content: "helper()", StableID: "block-id"}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "app.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{helper, block}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	aliases := resolve.Build(idx, nil)

	graph := callgraph.Build(idx, aliases)
	assert.Equal(t, []string{"helper-id"}, graph.Callees("block-id"))
	assert.Equal(t, []string{"block-id"}, graph.Callers("helper-id"))
}

func TestBuildDiscardsSelfEdges(t *testing.T) {
	recursive := &model.Element{Kind: model.KindFunction, Name: "loop (L1)", QualifiedName: "loop", Location: model.Location{StartLine: 1, EndLine: 2}, Content: "def loop():\n    return loop()", StableID: "loop-id"}
	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "app.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{recursive}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	aliases := resolve.Build(idx, nil)

	graph := callgraph.Build(idx, aliases)
	assert.Empty(t, graph.Callees("loop-id"))
}
