package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corelens/tracecore/classify"
	"github.com/corelens/tracecore/config"
)

func TestIdentity(t *testing.T) {
	cfg := config.Default()
	c := classify.New(cfg)

	assert.Equal(t, config.ParserScript, c.Identity("api/files.py"))
	assert.Equal(t, config.ParserWebScript, c.Identity("static/app.js"))
	assert.Equal(t, config.ParserMarkup, c.Identity("templates/index.html"))
	assert.Equal(t, classify.Skip, c.Identity("README.md"))
}

func TestIdentitySkipsIgnoredDirectory(t *testing.T) {
	cfg := config.Default()
	c := classify.New(cfg)

	assert.Equal(t, classify.Skip, c.Identity("node_modules/lib/index.js"))
	assert.Equal(t, classify.Skip, c.Identity("venv/lib/foo.py"))
}

func TestIdentitySkipsIgnoredExtension(t *testing.T) {
	cfg := config.Default()
	c := classify.New(cfg)

	assert.Equal(t, classify.Skip, c.Identity("static/app.min.js"))
}

func TestIdentityIsCaseInsensitive(t *testing.T) {
	cfg := config.Default()
	c := classify.New(cfg)

	assert.Equal(t, config.ParserMarkup, c.Identity("Templates/Index.HTML"))
}
