package script_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/parser/script"
)

const routeSample = `from core.database import get_db_connection

@router.get("/users/{uid}")
async def read_user(uid):
    return get_db_connection()
`

func TestParseRouteAndInternalCalls(t *testing.T) {
	p := script.New()
	elements, err := p.Parse(context.Background(), []byte(routeSample))
	require.NoError(t, err)
	require.NotEmpty(t, elements)

	var fn *model.Element
	for _, el := range elements {
		if el.Kind == model.KindFunction {
			fn = el
		}
	}
	require.NotNil(t, fn, "expected a function element")
	assert.Equal(t, 3, fn.Location.StartLine, "start line should be lowered to the decorator")

	meta, ok := fn.Metadata.(*model.FunctionMetadata)
	require.True(t, ok)
	require.Len(t, meta.APIRoutes, 1)
	assert.Equal(t, "GET", meta.APIRoutes[0].Method)
	assert.Equal(t, "/users/{uid}", meta.APIRoutes[0].Path)
	assert.Contains(t, meta.InternalCalls, "get_db_connection")
}

func TestParseSyntaxErrorProducesSingleErrorElement(t *testing.T) {
	p := script.New()
	elements, err := p.Parse(context.Background(), []byte("def broken(:\n"))
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, model.KindError, elements[0].Kind)
}

func TestParseEmptySourceProducesNoElements(t *testing.T) {
	p := script.New()
	elements, err := p.Parse(context.Background(), []byte("   \n"))
	require.NoError(t, err)
	assert.Empty(t, elements)
}
