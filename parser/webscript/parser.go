// Package webscript implements the tree-sitter-style Web-Script Parser
// (spec §4.3): a multi-pass extraction over a JavaScript-like grammar
// producing functions, DOM element lookups, event listeners (with
// handler annotation and submit-to-click synthesis), generic top-level
// blocks, and frontend HTTP call sites.
package webscript

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/corelens/tracecore/model"
)

// Parser parses JavaScript-like source into element trees. A fresh
// instance is created per file, matching the original's per-parser
// sitter instance policy (§5: "the web-script parser instance is created
// per file").
type Parser struct{}

func New() *Parser { return &Parser{} }

// draft is the mutable working record for one element before the tree is
// built and it is converted to a model.Element. node identifies the
// tree-sitter node it was derived from; elementNode may widen that span
// (e.g. a DOM lookup widened to its enclosing variable declarator).
type draft struct {
	node        *sitter.Node
	elementNode *sitter.Node
	kind        model.ElementKind
	name        string
	listeners   []model.EventListenerRef
	apiCalls    []model.APICall
	domMeta     *model.DOMElementMetadata
	listenerMeta *model.EventListenerMetadata
	internalCalls []string
	children    []*draft
	parent      *draft
}

type builder struct {
	src         []byte
	byKey       map[string]*draft
	order       []*draft
	processed   map[string]bool
}

func key(n *sitter.Node) string {
	return fmt.Sprintf("%d:%d:%s", n.StartByte(), n.EndByte(), n.Type())
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

func stripQuotes(s string) string {
	return strings.Trim(s, "'\"`")
}

// Parse produces the ordered root elements for one file's source.
func (p *Parser) Parse(ctx context.Context, src []byte) ([]*model.Element, error) {
	if len(strings.TrimSpace(string(src))) == 0 {
		return nil, nil
	}

	sp := sitter.NewParser()
	sp.SetLanguage(javascript.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return []*model.Element{syntaxErrorElement(src)}, nil
	}
	root := tree.RootNode()
	if root.HasError() {
		return []*model.Element{syntaxErrorElement(src)}, nil
	}

	b := &builder{src: src, byKey: map[string]*draft{}, processed: map[string]bool{}}
	workingRoot := b.unwrapDOMContentLoaded(root)

	b.passFunctions(workingRoot)
	b.passDOMElementDefinitions(workingRoot)
	b.passEventListeners(workingRoot)
	b.passGenericBlocks(workingRoot)
	b.passAPICalls()

	roots := b.buildTree()
	b.synthesizeSubmitClick(b.order)

	elements := make([]*model.Element, 0, len(roots))
	for _, d := range roots {
		elements = append(elements, d.toElement())
	}
	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].Location.StartLine < elements[j].Location.StartLine
	})
	return elements, nil
}

func syntaxErrorElement(src []byte) *model.Element {
	lines := strings.Count(string(src), "\n") + 1
	return &model.Element{
		Kind:     model.KindError,
		Name:     "Tree-sitter parsing error",
		Location: model.Location{StartLine: 1, EndLine: lines},
	}
}

func (d *draft) toElement() *model.Element {
	el := &model.Element{
		Kind:     d.kind,
		Name:     d.name,
		Location: model.Location{StartLine: int(d.elementNode.StartPoint().Row) + 1, EndLine: int(d.elementNode.EndPoint().Row) + 1},
	}
	switch d.kind {
	case model.KindFunction:
		meta := &model.FunctionMetadata{EventListeners: d.listeners, APICalls: d.apiCalls, InternalCalls: d.internalCalls}
		el.Metadata = meta
		el.QualifiedName = d.name
	case model.KindDOMElementDefinition:
		el.Metadata = d.domMeta
	case model.KindEventListener:
		el.Metadata = d.listenerMeta
	}
	for _, c := range d.children {
		child := c.toElement()
		child.Parent = el
		el.Children = append(el.Children, child)
	}
	sort.SliceStable(el.Children, func(i, j int) bool {
		return el.Children[i].Location.StartLine < el.Children[j].Location.StartLine
	})
	return el
}

// unwrapDOMContentLoaded implements Pass 0: if a document.addEventListener
// DOMContentLoaded wrapper spans more than 80% of the file's bytes,
// subsequent passes walk its handler body instead of the file root.
func (b *builder) unwrapDOMContentLoaded(root *sitter.Node) *sitter.Node {
	fileSize := len(b.src)
	if fileSize == 0 {
		fileSize = 1
	}
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "call_expression" {
			callee := n.ChildByFieldName("function")
			if callee != nil && callee.Type() == "member_expression" {
				obj := callee.ChildByFieldName("object")
				prop := callee.ChildByFieldName("property")
				if obj != nil && prop != nil && b.text(obj) == "document" && b.text(prop) == "addEventListener" {
					args := n.ChildByFieldName("arguments")
					if args != nil {
						named := namedChildren(args)
						if len(named) >= 2 {
							evtText := stripQuotes(b.text(named[0]))
							handler := named[1]
							if evtText == "DOMContentLoaded" && (handler.Type() == "arrow_function" || handler.Type() == "function") {
								body := handler.ChildByFieldName("body")
								if body != nil && body.Type() == "statement_block" && float64(n.EndByte()-n.StartByte()) > 0.8*float64(fileSize) {
									found = body
									return
								}
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
			if found != nil {
				return
			}
		}
	}
	walk(root)
	if found != nil {
		return found
	}
	return root
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func allDescendants(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	var walk func(x *sitter.Node)
	walk = func(x *sitter.Node) {
		out = append(out, x)
		for i := 0; i < int(x.ChildCount()); i++ {
			walk(x.Child(i))
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i))
	}
	return out
}

func (b *builder) markProcessed(n *sitter.Node) {
	for _, d := range allDescendants(n) {
		b.processed[key(d)] = true
	}
	b.processed[key(n)] = true
}

// passFunctions implements Pass 1.
func (b *builder) passFunctions(root *sitter.Node) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "function", "arrow_function":
			b.recordFunction(n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

func (b *builder) recordFunction(n *sitter.Node) {
	if b.byKey[key(n)] != nil {
		return
	}
	name := "(anonymous)"
	if n.Type() == "function_declaration" {
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
	} else if n.Parent() != nil && n.Parent().Type() == "variable_declarator" {
		if nameNode := n.Parent().ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
	}
	if name == "(anonymous)" {
		name = fmt.Sprintf("(anonymous) (L%d:%d)", n.StartPoint().Row+1, n.StartPoint().Column)
	}
	d := &draft{node: n, elementNode: n, kind: model.KindFunction, name: name}
	b.byKey[key(n)] = d
	b.order = append(b.order, d)
	b.markProcessed(n)
}

var domLookupMethods = map[string]bool{"getElementById": true, "querySelector": true, "querySelectorAll": true}

// passDOMElementDefinitions implements Pass 2.
func (b *builder) passDOMElementDefinitions(root *sitter.Node) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "member_expression" {
				obj := fn.ChildByFieldName("object")
				prop := fn.ChildByFieldName("property")
				if obj != nil && prop != nil && obj.Type() == "identifier" && b.text(obj) == "document" && domLookupMethods[b.text(prop)] {
					if !b.processed[key(n)] {
						b.recordDOMElement(n, fn, prop)
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

func (b *builder) recordDOMElement(call, fn, prop *sitter.Node) {
	name := "(unassigned)"
	elementNode := call
	parent := call.Parent()
	if parent != nil {
		switch parent.Type() {
		case "variable_declarator":
			if nameNode := parent.ChildByFieldName("name"); nameNode != nil {
				name = b.text(nameNode)
			}
			elementNode = parent
		case "pair":
			if keyNode := parent.ChildByFieldName("key"); keyNode != nil {
				name = b.text(keyNode)
			}
			elementNode = parent
		case "assignment_expression":
			if leftNode := parent.ChildByFieldName("left"); leftNode != nil {
				name = b.text(leftNode)
			}
			elementNode = parent
		}
	}
	if name == "(unassigned)" {
		for anc := parent; anc != nil; anc = anc.Parent() {
			if anc.Type() == "variable_declarator" {
				if nameNode := anc.ChildByFieldName("name"); nameNode != nil {
					name = b.text(nameNode)
				}
				elementNode = anc
				break
			}
			if anc.Type() == "pair" {
				if keyNode := anc.ChildByFieldName("key"); keyNode != nil {
					name = b.text(keyNode)
				}
				elementNode = anc
				break
			}
		}
		if name == "(unassigned)" {
			name = b.text(call)
		}
	}

	selector := ""
	if args := call.ChildByFieldName("arguments"); args != nil {
		named := namedChildren(args)
		if len(named) > 0 {
			selector = stripQuotes(b.text(named[0]))
		}
	}

	d := &draft{
		node: elementNode, elementNode: elementNode,
		kind: model.KindDOMElementDefinition, name: name,
		domMeta: &model.DOMElementMetadata{Selector: selector, Method: b.text(prop)},
	}
	b.byKey[key(elementNode)] = d
	b.order = append(b.order, d)
	b.markProcessed(elementNode)
}

// passEventListeners implements Pass 3: two shapes
// (X.addEventListener(evt, handler) and X.onEVENT = handler), plus
// handler annotation and call-propagation.
func (b *builder) passEventListeners(root *sitter.Node) {
	var candidates []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if (n.Type() == "call_expression" && n.ChildByFieldName("function") != nil && n.ChildByFieldName("function").Type() == "member_expression") ||
			(n.Type() == "assignment_expression" && n.ChildByFieldName("left") != nil && n.ChildByFieldName("left").Type() == "member_expression") {
			candidates = append(candidates, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	for _, n := range candidates {
		if b.processed[key(n)] {
			continue
		}
		var selectorNode, handlerNode *sitter.Node
		var eventText, handlerName string

		if n.Type() == "call_expression" {
			fn := n.ChildByFieldName("function")
			prop := fn.ChildByFieldName("property")
			if prop == nil || b.text(prop) != "addEventListener" {
				continue
			}
			args := n.ChildByFieldName("arguments")
			if args == nil {
				continue
			}
			named := namedChildren(args)
			if len(named) < 2 {
				continue
			}
			eventText = stripQuotes(b.text(named[0]))
			handlerNode = named[1]
			if obj := fn.ChildByFieldName("object"); obj != nil {
				selectorNode = obj
			}
		} else {
			left := n.ChildByFieldName("left")
			prop := left.ChildByFieldName("property")
			if prop == nil || !strings.HasPrefix(b.text(prop), "on") {
				continue
			}
			eventText = strings.TrimPrefix(b.text(prop), "on")
			handlerNode = n.ChildByFieldName("right")
			if obj := left.ChildByFieldName("object"); obj != nil {
				selectorNode = obj
			}
		}
		if handlerNode == nil || eventText == "" {
			continue
		}

		selectorHint := b.text(selectorNode)
		if handlerNode.Type() == "identifier" {
			handlerName = b.text(handlerNode)
		} else {
			handlerName = "(inline handler)"
		}

		d := &draft{
			node: n, elementNode: n,
			kind: model.KindEventListener,
			name: fmt.Sprintf("%s on '%s'", eventText, selectorHint),
			listenerMeta: &model.EventListenerMetadata{Event: eventText, SelectorHint: selectorHint, HandlerName: handlerName},
		}
		b.byKey[key(n)] = d
		b.order = append(b.order, d)
		b.markProcessed(n)

		ref := model.EventListenerRef{Event: eventText, SelectorHint: selectorHint}
		var funcDraft *draft
		if handlerNode.Type() == "identifier" {
			handlerText := b.text(handlerNode)
			for _, cand := range b.order {
				if cand.kind == model.KindFunction && cand.name == handlerText {
					funcDraft = cand
					break
				}
			}
		} else if fd, ok := b.byKey[key(handlerNode)]; ok {
			funcDraft = fd
		}
		if funcDraft != nil {
			funcDraft.listeners = append(funcDraft.listeners, ref)
			if strings.HasPrefix(funcDraft.name, "(anonymous)") {
				funcDraft.name = fmt.Sprintf("(handler for '%s') (L%d:%d)", eventText, funcDraft.node.StartPoint().Row+1, funcDraft.node.StartPoint().Column)
			}
			if handlerNode.Type() == "function" || handlerNode.Type() == "arrow_function" {
				for _, callNode := range allDescendants(handlerNode) {
					if callNode.Type() != "call_expression" {
						continue
					}
					calleeFn := callNode.ChildByFieldName("function")
					if calleeFn == nil || calleeFn.Type() != "identifier" {
						continue
					}
					calleeName := b.text(calleeFn)
					for _, cand := range b.order {
						if cand.name == calleeName {
							cand.listeners = append(cand.listeners, ref)
						}
					}
				}
			}
		}
	}
}

// passGenericBlocks implements Pass 4: one element per top-level
// statement not already classified and with no classified descendant.
func (b *builder) passGenericBlocks(root *sitter.Node) {
	children := make([]*sitter.Node, 0, root.ChildCount())
	for i := 0; i < int(root.ChildCount()); i++ {
		children = append(children, root.Child(i))
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].StartPoint().Row < children[j].StartPoint().Row
	})
	for _, n := range children {
		if b.processed[key(n)] {
			continue
		}
		hasProcessedDescendant := false
		for _, d := range allDescendants(n) {
			if b.processed[key(d)] {
				hasProcessedDescendant = true
				break
			}
		}
		if hasProcessedDescendant {
			continue
		}
		name := firstNonEmptyLine(b.text(n))
		kind := strings.ReplaceAll(n.Type(), "_", " ")
		if n.Type() == "lexical_declaration" || n.Type() == "variable_declaration" {
			kind = "variable_declaration"
		}
		d := &draft{node: n, elementNode: n, kind: model.ElementKind(kind), name: name}
		b.byKey[key(n)] = d
		b.order = append(b.order, d)
	}
}

func firstNonEmptyLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	return lines[0]
}

// passAPICalls implements Pass 5: fetch/axios call sites inside each
// function element become that function's metadata.api_calls.
func (b *builder) passAPICalls() {
	for _, d := range b.order {
		if d.kind != model.KindFunction {
			continue
		}
		var calls []model.APICall
		for _, n := range allDescendants(d.node) {
			if n.Type() != "call_expression" {
				continue
			}
			fn := n.ChildByFieldName("function")
			if fn == nil {
				continue
			}
			args := n.ChildByFieldName("arguments")
			if args == nil {
				continue
			}
			argNodes := namedChildren(args)
			if len(argNodes) == 0 {
				continue
			}
			path := stripQuotes(b.text(argNodes[0]))
			if strings.Contains(path, "API_BASE_URL") {
				if idx := strings.LastIndex(path, "}"); idx >= 0 {
					path = path[idx+1:]
				}
			}
			var options *sitter.Node
			if len(argNodes) > 1 {
				options = argNodes[1]
			}

			if fn.Type() == "identifier" && b.text(fn) == "fetch" {
				method := "GET"
				if options != nil && options.Type() == "object" {
					for _, pair := range namedChildren(options) {
						if pair.Type() != "pair" {
							continue
						}
						keyNode := pair.ChildByFieldName("key")
						valNode := pair.ChildByFieldName("value")
						if keyNode != nil && valNode != nil && b.text(keyNode) == "method" && valNode.Type() == "string" {
							method = strings.ToUpper(stripQuotes(b.text(valNode)))
							break
						}
					}
				}
				calls = append(calls, model.APICall{Method: method, Path: path, Library: "fetch"})
			} else if fn.Type() == "member_expression" {
				obj := fn.ChildByFieldName("object")
				propNode := fn.ChildByFieldName("property")
				if obj != nil && propNode != nil && b.text(obj) == "axios" {
					calls = append(calls, model.APICall{Method: strings.ToUpper(b.text(propNode)), Path: path, Library: "axios"})
				}
			}
		}
		if len(calls) > 0 {
			d.apiCalls = calls
		}
	}
}

// buildTree implements Pass 6: walk each element up to its nearest
// recorded ancestor.
func (b *builder) buildTree() []*draft {
	var roots []*draft
	for _, d := range b.order {
		var parentNode *sitter.Node
		found := false
		for anc := d.node.Parent(); anc != nil; anc = anc.Parent() {
			if pd, ok := b.byKey[key(anc)]; ok {
				pd.children = append(pd.children, d)
				d.parent = pd
				found = true
				break
			}
			parentNode = anc
		}
		_ = parentNode
		if !found {
			roots = append(roots, d)
		}
	}
	return roots
}

// synthesizeSubmitClick implements Pass 7.
func (b *builder) synthesizeSubmitClick(all []*draft) {
	for _, d := range all {
		var synthetic []model.EventListenerRef
		for _, l := range d.listeners {
			if l.Event == "submit" && l.SelectorHint != "" {
				synthetic = append(synthetic, model.EventListenerRef{
					Event:        "click",
					SelectorHint: l.SelectorHint + " button[type=submit]",
					Synthetic:    true,
				})
			}
		}
		d.listeners = append(d.listeners, synthetic...)
	}
}
