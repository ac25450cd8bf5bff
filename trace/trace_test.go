package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/callgraph"
	"github.com/corelens/tracecore/config"
	"github.com/corelens/tracecore/endpoint"
	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/resolve"
	"github.com/corelens/tracecore/trace"
)

func TestBuildTracesEndpointAndMatchingJSCallSite(t *testing.T) {
	pyFn := &model.Element{
		Kind:          model.KindFunction,
		Name:          "read_user (L1)",
		QualifiedName: "read_user",
		Location:      model.Location{StartLine: 1, EndLine: 2},
		Content:       `@router.get("/users/{uid}")` + "\ndef read_user(uid): pass",
		StableID:      "py-fn",
		Metadata:      &model.FunctionMetadata{APIRoutes: []model.APIRoute{{Method: "GET", Path: "/users/{uid}"}}},
	}
	jsFn := &model.Element{
		Kind:     model.KindFunction,
		Name:     "loadUser",
		Location: model.Location{StartLine: 1, EndLine: 2},
		Content:  `function loadUser() { fetch("/api/users/${id}"); }`,
		StableID: "js-fn",
		Metadata: &model.FunctionMetadata{APICalls: []model.APICall{{Method: "GET", Path: "/api/users/${id}", Library: "fetch"}}},
	}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{pyFn}},
		{Path: "app.js", LanguageTag: model.LanguageWebScript, Elements: []*model.Element{jsFn}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)

	aliases := resolve.Build(idx, nil)
	pyGraph := callgraph.Build(idx, aliases)

	cfg := config.Default()
	cfg.APIPrefix = "/api"
	endpoints := endpoint.Endpoints(idx, cfg)
	callSites := endpoint.CallSites(idx)

	workflows := trace.Build(idx, pyGraph, endpoints, callSites)
	require.Len(t, workflows, 1)

	wf := workflows[0]
	assert.Equal(t, "GET /api/users/{VAR}", wf.WorkflowName)
	require.NotNil(t, wf.PythonTrace)
	assert.Equal(t, "py-fn", wf.PythonTrace.ID)
	require.Len(t, wf.JavaScriptTraces, 1)
	assert.Equal(t, "js-fn", wf.JavaScriptTraces[0].ID)
}

func TestBuildMarksRevisitedNodeAsReference(t *testing.T) {
	shared := &model.Element{Kind: model.KindFunction, Name: "shared (L1)", QualifiedName: "shared", Location: model.Location{StartLine: 1, EndLine: 2}, Content: "def shared(): pass", StableID: "shared-id"}
	helper1 := &model.Element{Kind: model.KindFunction, Name: "helper1 (L4)", QualifiedName: "helper1", Location: model.Location{StartLine: 4, EndLine: 5}, Content: "def helper1(): return shared()", StableID: "helper1-id"}
	helper2 := &model.Element{Kind: model.KindFunction, Name: "helper2 (L7)", QualifiedName: "helper2", Location: model.Location{StartLine: 7, EndLine: 8}, Content: "def helper2(): return shared()", StableID: "helper2-id"}
	epA := &model.Element{
		Kind: model.KindFunction, Name: "epA (L10)", QualifiedName: "epA", Location: model.Location{StartLine: 10, EndLine: 11},
		Content:  `@router.get("/a")` + "\ndef epA(): helper1(); helper2()",
		StableID: "epA-id", Metadata: &model.FunctionMetadata{APIRoutes: []model.APIRoute{{Method: "GET", Path: "/a"}}},
	}

	proj := &model.Project{Files: []*model.FileRecord{
		{Path: "routes.py", LanguageTag: model.LanguageScript, Elements: []*model.Element{shared, helper1, helper2, epA}},
	}}
	idx, err := index.Build(proj)
	require.NoError(t, err)
	aliases := resolve.Build(idx, nil)
	pyGraph := callgraph.Build(idx, aliases)

	endpoints := endpoint.Endpoints(idx, config.Default())
	workflows := trace.Build(idx, pyGraph, endpoints, nil)
	require.Len(t, workflows, 1)

	callees := workflows[0].PythonTrace.Callees
	require.Len(t, callees, 2)
	assert.Equal(t, "helper1-id", callees[0].ID)
	assert.False(t, callees[0].Reference)
	assert.Equal(t, "helper2-id", callees[1].ID)
	assert.True(t, callees[1].Reference)
}
