// Package endpoint implements the Endpoint / Call-site Extractor (spec
// §4.9): it turns api_routes metadata into a backend Endpoint set and
// api_calls metadata into a frontend CallSite set, both normalized onto a
// shared matching key.
package endpoint

import (
	"regexp"
	"strings"

	"github.com/corelens/tracecore/config"
	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
)

var (
	pathParamRe  = regexp.MustCompile(`\{[^}]+\}`)
	templateVarRe = regexp.MustCompile(`\$\{[^}]+\}`)
)

// Endpoints walks every script-language function with api_routes metadata
// and emits one Endpoint per route, path-parameter-normalized and prefixed
// with cfg's configured API prefix.
func Endpoints(idx *index.Index, cfg *config.Config) []model.Endpoint {
	var out []model.Endpoint
	for _, path := range idx.Paths() {
		rec := idx.FileByPath(path)
		if rec.LanguageTag != model.LanguageScript {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.Kind != model.KindFunction {
					return
				}
				meta, ok := el.Metadata.(*model.FunctionMetadata)
				if !ok {
					return
				}
				for _, route := range meta.APIRoutes {
					out = append(out, model.Endpoint{
						Method:         strings.ToUpper(route.Method),
						LiteralPath:    route.Path,
						NormalizedPath: pathParamRe.ReplaceAllString(route.Path, "{VAR}"),
						Prefix:         cfg.APIPrefix,
						ElementRef:     el,
					})
				}
			})
		}
	}
	return out
}

// CallSites walks every web-script function with api_calls metadata and
// emits one CallSite per entry, with embedded ${...} template placeholders
// normalized to {VAR} for matching while LiteralPath keeps the original
// text for reporting.
func CallSites(idx *index.Index) []model.CallSite {
	var out []model.CallSite
	for _, path := range idx.Paths() {
		rec := idx.FileByPath(path)
		if rec.LanguageTag != model.LanguageWebScript {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.Kind != model.KindFunction {
					return
				}
				meta, ok := el.Metadata.(*model.FunctionMetadata)
				if !ok {
					return
				}
				for _, call := range meta.APICalls {
					out = append(out, model.CallSite{
						Method:         strings.ToUpper(call.Method),
						LiteralPath:    call.Path,
						NormalizedPath: templateVarRe.ReplaceAllString(call.Path, "{VAR}"),
						Library:        call.Library,
						CallerElement:  el,
					})
				}
			})
		}
	}
	return out
}
