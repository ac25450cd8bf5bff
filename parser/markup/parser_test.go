package markup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelens/tracecore/model"
	"github.com/corelens/tracecore/parser/markup"
)

func TestParseButtonWithOnclick(t *testing.T) {
	p := markup.New()
	elements, err := p.Parse(context.Background(), []byte(`<div><button id="x" onclick="go()">Go</button></div>`))
	require.NoError(t, err)
	require.NotEmpty(t, elements)

	var button *model.Element
	for _, el := range elements {
		el.Walk(func(e *model.Element) {
			if meta, ok := e.Metadata.(*model.UIElementMetadata); ok && meta.Tag == "button" {
				button = e
			}
		})
	}
	require.NotNil(t, button, "expected a button ui_element")
	meta := button.Metadata.(*model.UIElementMetadata)
	assert.Equal(t, "go()", meta.Onclick)
	assert.Equal(t, "x", meta.ID)
}

func TestParseEmptySourceProducesNoElements(t *testing.T) {
	p := markup.New()
	elements, err := p.Parse(context.Background(), []byte("   \n"))
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestParseHiddenInputIsNotUIElement(t *testing.T) {
	p := markup.New()
	elements, err := p.Parse(context.Background(), []byte(`<input type="hidden" name="csrf" value="x">`))
	require.NoError(t, err)
	assert.Empty(t, elements)
}
