package webscript_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/parser/webscript"
)

func TestParseFunctionWithFetchCall(t *testing.T) {
	src := `function loadUser(id) {
    return fetch("/api/users/" + id, { method: "GET" });
}
`
	p := webscript.New()
	elements, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var fn *model.Element
	for _, el := range elements {
		el.Walk(func(e *model.Element) {
			if e.Kind == model.KindFunction {
				fn = e
			}
		})
	}
	require.NotNil(t, fn)
	assert.Equal(t, "loadUser", fn.QualifiedName)

	meta, ok := fn.Metadata.(*model.FunctionMetadata)
	require.True(t, ok)
	require.Len(t, meta.APICalls, 1)
	assert.Equal(t, "GET", meta.APICalls[0].Method)
	assert.Equal(t, "fetch", meta.APICalls[0].Library)
}

func TestParseDOMLookupAndEventListener(t *testing.T) {
	src := `const submitButton = document.getElementById("submit");
submitButton.addEventListener("click", function() {
    console.log("clicked");
});
`
	p := webscript.New()
	elements, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	var dom *model.Element
	for _, el := range elements {
		el.Walk(func(e *model.Element) {
			if e.Kind == model.KindDOMElementDefinition {
				dom = e
			}
		})
	}
	require.NotNil(t, dom, "expected a dom_element_definition")
	meta, ok := dom.Metadata.(*model.DOMElementMetadata)
	require.True(t, ok)
	assert.Equal(t, "submit", meta.Selector)
	assert.Equal(t, "getElementById", meta.Method)
}

func TestParseEmptySourceProducesNoElements(t *testing.T) {
	p := webscript.New()
	elements, err := p.Parse(context.Background(), []byte("   \n"))
	require.NoError(t, err)
	assert.Empty(t, elements)
}
