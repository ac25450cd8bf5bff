// Package trace implements the Full-Stack Tracer (spec §4.10): for every
// backend Endpoint, it expands a caller/callee closure over the Python
// call graph and links it to the matching frontend call sites' own
// closures over the web-script call graph, grounded algorithmically on
// trace_py_element/trace_js_element in
// _examples/original_source/workflows/full_stack_tracer.py.
package trace

import (
	"regexp"
	"sort"
	"strings"

	"github.com/corelens/tracecore/callgraph"
	"github.com/corelens/tracecore/index"
	"github.com/corelens/tracecore/model"
)

const kindExpressionStatement model.ElementKind = "expression statement"

// Build produces one WorkflowTrace per endpoint, matching it against every
// call site whose normalized key equals the endpoint's key. Caches are
// shared across every endpoint in this call, so a function already
// expanded for an earlier workflow is reported as a reference, not
// re-expanded, matching the original's run-scoped trace_cache.
func Build(idx *index.Index, pyGraph *model.CallGraph, endpoints []model.Endpoint, callSites []model.CallSite) []*model.WorkflowTrace {
	jsGraph := callgraph.BuildByNameMatch(idx, model.LanguageWebScript)

	t := &tracer{
		pyGraph:   pyGraph,
		jsGraph:   jsGraph,
		domByName: domElementsByName(idx),
		pathByID:  pathsByStableID(idx),
		pyByID:    elementsByStableID(idx, model.LanguageScript),
		jsByID:    elementsByStableID(idx, model.LanguageWebScript),
		pyCache:   map[string]*model.TraceNode{},
		jsCache:   map[string]*model.TraceNode{},
	}

	callSitesByKey := make(map[string][]model.CallSite)
	for _, cs := range callSites {
		callSitesByKey[cs.Key()] = append(callSitesByKey[cs.Key()], cs)
	}

	sortedEndpoints := append([]model.Endpoint(nil), endpoints...)
	sort.SliceStable(sortedEndpoints, func(i, j int) bool { return sortedEndpoints[i].Key() < sortedEndpoints[j].Key() })

	var workflows []*model.WorkflowTrace
	for _, ep := range sortedEndpoints {
		wf := &model.WorkflowTrace{
			WorkflowName: ep.Key(),
			Endpoint: model.EndpointRef{
				ID:   ep.ElementRef.StableID,
				Name: ep.ElementRef.Name,
				Kind: ep.ElementRef.Kind,
				Path: t.pathByID[ep.ElementRef.StableID],
			},
		}
		wf.PythonTrace = t.tracePython(ep.ElementRef)

		for _, cs := range callSitesByKey[ep.Key()] {
			wf.JavaScriptTraces = append(wf.JavaScriptTraces, t.traceJS(cs.CallerElement))
		}
		workflows = append(workflows, wf)
	}
	return workflows
}

type tracer struct {
	pyGraph   *model.CallGraph
	jsGraph   *model.CallGraph
	domByName map[string]*model.Element
	pathByID  map[string]string
	pyByID    map[string]*model.Element
	jsByID    map[string]*model.Element
	pyCache   map[string]*model.TraceNode
	jsCache   map[string]*model.TraceNode
}

// tracePython expands el and every Python caller/callee reachable from it,
// never expanding callees below a statement_block.
func (t *tracer) tracePython(el *model.Element) *model.TraceNode {
	if node, done := t.cached(t.pyCache, el); done {
		return node
	}
	t.pyCache[el.StableID] = &model.TraceNode{Recursive: true}

	node := t.baseNode(el)
	for _, callerID := range t.pyGraph.Callers(el.StableID) {
		if caller := t.pyByID[callerID]; caller != nil {
			node.Callers = append(node.Callers, t.tracePython(caller))
		}
	}
	if el.Kind != model.KindStatementBlock {
		for _, calleeID := range t.pyGraph.Callees(el.StableID) {
			if callee := t.pyByID[calleeID]; callee != nil {
				node.Callees = append(node.Callees, t.tracePython(callee))
			}
		}
	}

	t.pyCache[el.StableID] = node
	return node
}

// traceJS expands el and every JavaScript caller/callee reachable from it,
// stopping at a DOM-triggered expression statement and never expanding
// callees below a non-function element.
func (t *tracer) traceJS(el *model.Element) *model.TraceNode {
	if node, done := t.cached(t.jsCache, el); done {
		return node
	}
	t.jsCache[el.StableID] = &model.TraceNode{Recursive: true}

	node := t.baseNode(el)

	if el.Kind == kindExpressionStatement {
		if trigger := t.findDOMTrigger(el); trigger != nil {
			node.TriggeredByDOMElement = trigger
			t.jsCache[el.StableID] = node
			return node
		}
	}

	for _, callerID := range t.jsGraph.Callers(el.StableID) {
		if caller := t.jsByID[callerID]; caller != nil {
			node.Callers = append(node.Callers, t.traceJS(caller))
		}
	}
	if el.Kind == model.KindFunction {
		for _, calleeID := range t.jsGraph.Callees(el.StableID) {
			if callee := t.jsByID[calleeID]; callee != nil {
				node.Callees = append(node.Callees, t.traceJS(callee))
			}
		}
	}

	t.jsCache[el.StableID] = node
	return node
}

func (t *tracer) findDOMTrigger(el *model.Element) *model.DOMTriggerRef {
	var names []string
	for name := range t.domByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" || !matchesWord(name, el.Content) {
			continue
		}
		dom := t.domByName[name]
		selector := ""
		if meta, ok := dom.Metadata.(*model.DOMElementMetadata); ok {
			selector = meta.Selector
		}
		return &model.DOMTriggerRef{ID: dom.StableID, Name: dom.Name, Kind: dom.Kind, Selector: selector}
	}
	return nil
}

func matchesWord(name, content string) bool {
	return regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\b`).MatchString(content)
}

// cached implements the three-state shared-cache lookup: absent (not yet
// seen — caller proceeds to a full expansion), tracing (a placeholder,
// signals recursion), done (a computed node returned as a lightweight
// reference).
func (t *tracer) cached(cache map[string]*model.TraceNode, el *model.Element) (*model.TraceNode, bool) {
	existing, ok := cache[el.StableID]
	if !ok {
		return nil, false
	}
	if existing.Recursive && existing.Callers == nil && existing.Callees == nil && existing.TriggeredByDOMElement == nil {
		return &model.TraceNode{ID: el.StableID, Name: el.Name, Kind: el.Kind, Path: t.pathByID[el.StableID], Recursive: true}, true
	}
	return &model.TraceNode{ID: el.StableID, Name: el.Name, Kind: el.Kind, Path: t.pathByID[el.StableID], Reference: true}, true
}

func (t *tracer) baseNode(el *model.Element) *model.TraceNode {
	return &model.TraceNode{ID: el.StableID, Name: el.Name, Kind: el.Kind, Path: t.pathByID[el.StableID]}
}

func pathsByStableID(idx *index.Index) map[string]string {
	out := map[string]string{}
	for _, p := range idx.Paths() {
		rec := idx.FileByPath(p)
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) { out[el.StableID] = p })
		}
	}
	return out
}

func elementsByStableID(idx *index.Index, lang model.LanguageTag) map[string]*model.Element {
	out := map[string]*model.Element{}
	for _, p := range idx.Paths() {
		rec := idx.FileByPath(p)
		if rec.LanguageTag != lang {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) { out[el.StableID] = el })
		}
	}
	return out
}

func domElementsByName(idx *index.Index) map[string]*model.Element {
	out := map[string]*model.Element{}
	for _, p := range idx.Paths() {
		rec := idx.FileByPath(p)
		if rec.LanguageTag != model.LanguageWebScript {
			continue
		}
		for _, root := range rec.Elements {
			root.Walk(func(el *model.Element) {
				if el.Kind != model.KindDOMElementDefinition {
					return
				}
				out[stripLineSuffix(el.Name)] = el
			})
		}
	}
	return out
}

func stripLineSuffix(name string) string {
	if i := strings.Index(name, " (L"); i >= 0 {
		return name[:i]
	}
	return name
}
