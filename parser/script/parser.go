// Package script implements the AST-based Script Parser (spec §4.2): a
// hierarchical element tree extracted from a Python-like grammar via
// tree-sitter, including API-route decorator recognition, internal-call
// collection, and a comment-block merge pass over otherwise uncovered
// lines.
package script

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/corelens/tracecore/model"
)

var httpVerbs = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
	"patch": true, "options": true, "head": true, "trace": true,
}

// Parser parses Python-like source into element trees. It holds no
// per-parse state and is safe for concurrent use; each call creates its
// own sitter.Parser, mirroring the web-script parser's per-file instance
// policy from §5.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser { return &Parser{} }

// Parse produces the ordered root elements for one file's source. On a
// grammar-level parse failure it returns a single error element and a nil
// error, matching the original's "halt with no other elements" behavior
// for SyntaxError/ValueError — a parser infrastructure failure (the
// grammar itself unavailable) is reported separately by the caller.
func (p *Parser) Parse(ctx context.Context, src []byte) ([]*model.Element, error) {
	if len(strings.TrimSpace(string(src))) == 0 {
		return nil, nil
	}

	sp := sitter.NewParser()
	sp.SetLanguage(python.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("script: parse: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return []*model.Element{errorElement(root, src)}, nil
	}

	w := &walker{src: src}
	var elements []*model.Element
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if el := w.processNode(root.NamedChild(i), false, ""); el != nil {
			elements = append(elements, el)
		}
	}

	comments := w.commentBlocks(elements)
	elements = append(elements, comments...)
	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].Location.StartLine < elements[j].Location.StartLine
	})
	return elements, nil
}

func errorElement(root *sitter.Node, src []byte) *model.Element {
	_ = root
	lines := strings.Count(string(src), "\n") + 1
	return &model.Element{
		Kind:     model.KindError,
		Name:     "Syntax Error",
		Location: model.Location{StartLine: 1, EndLine: lines},
	}
}

type walker struct {
	src []byte
}

// processNode mirrors the original's process_node: isChild distinguishes
// statements nested directly under a class body (every statement kind is
// considered) from statements nested under a function body (only nested
// function/class definitions recurse) and from top-level module
// statements (every statement kind is considered, and unrecognized
// statements become statement_block instead of being dropped).
func (w *walker) processNode(node *sitter.Node, isChild bool, parentName string) *model.Element {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	switch resolvedType(node) {
	case "import_statement", "import_from_statement":
		name := strings.Join(strings.Fields(strings.TrimSpace(node.Content(w.src))), " ")
		return w.finish(model.KindImport, fmt.Sprintf("%s (L%d)", name, startLine), startLine, endLine, nil)
	case "function_definition":
		return w.processFunction(node, parentName)
	case "class_definition":
		return w.processClass(node, parentName)
	case "assignment":
		return w.processAssignment(node, isChild, startLine, endLine)
	default:
		if isChild {
			return nil
		}
		firstLine := firstLine(strings.TrimSpace(node.Content(w.src)))
		el := w.finish(model.KindStatementBlock, fmt.Sprintf("%s (L%d)", firstLine, startLine), startLine, endLine, nil)
		el.QualifiedName = fmt.Sprintf("%s@L%d", firstLine, startLine)
		return el
	}
}

// resolvedType returns the statement kind to switch on, unwrapping a
// decorated_definition and an expression_statement down to the node that
// actually determines the element kind (assignment vs. anything else).
func resolvedType(node *sitter.Node) string {
	switch node.Type() {
	case "decorated_definition":
		inner := definitionOf(node)
		if inner != nil {
			return inner.Type()
		}
		return node.Type()
	case "expression_statement":
		if node.NamedChildCount() == 1 && node.NamedChild(0).Type() == "assignment" {
			return "assignment"
		}
		return "expression_statement"
	default:
		return node.Type()
	}
}

func definitionOf(decorated *sitter.Node) *sitter.Node {
	n := int(decorated.NamedChildCount())
	if n == 0 {
		return nil
	}
	return decorated.NamedChild(n - 1)
}

func decoratorsOf(decorated *sitter.Node) []*sitter.Node {
	n := int(decorated.NamedChildCount())
	if n <= 1 {
		return nil
	}
	out := make([]*sitter.Node, 0, n-1)
	for i := 0; i < n-1; i++ {
		out = append(out, decorated.NamedChild(i))
	}
	return out
}

func (w *walker) processFunction(node *sitter.Node, parentName string) *model.Element {
	decorated := node
	fn := node
	var decorators []*sitter.Node
	if node.Type() == "decorated_definition" {
		fn = definitionOf(node)
		decorators = decoratorsOf(node)
	} else {
		decorated = nil
	}
	_ = decorated

	startLine := int(fn.StartPoint().Row) + 1
	if len(decorators) > 0 {
		startLine = int(decorators[0].StartPoint().Row) + 1
	}
	endLine := int(fn.EndPoint().Row) + 1

	nameNode := fn.ChildByFieldName("name")
	localName := ""
	if nameNode != nil {
		localName = nameNode.Content(w.src)
	}
	qualifiedName := localName
	if parentName != "" {
		qualifiedName = parentName + "." + localName
	}

	meta := &model.FunctionMetadata{}
	var routes []model.APIRoute
	for _, dec := range decorators {
		if route := parseAPIDecorator(dec, w.src); route != nil {
			routes = append(routes, *route)
		}
	}
	if len(routes) > 0 {
		meta.APIRoutes = routes
	}

	body := fn.ChildByFieldName("body")
	if body != nil {
		calls := internalCalls(body, w.src)
		if len(calls) > 0 {
			meta.InternalCalls = calls
		}
	}

	el := w.finish(model.KindFunction, fmt.Sprintf("%s (L%d)", qualifiedName, startLine), startLine, endLine, meta)
	el.QualifiedName = qualifiedName

	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			t := resolvedType(child)
			if t != "function_definition" && t != "class_definition" {
				continue
			}
			if childEl := w.processNode(child, true, qualifiedName); childEl != nil {
				childEl.Parent = el
				el.Children = append(el.Children, childEl)
			}
		}
	}
	return el
}

func (w *walker) processClass(node *sitter.Node, parentName string) *model.Element {
	cls := node
	var decorators []*sitter.Node
	if node.Type() == "decorated_definition" {
		cls = definitionOf(node)
		decorators = decoratorsOf(node)
	}

	startLine := int(cls.StartPoint().Row) + 1
	if len(decorators) > 0 {
		startLine = int(decorators[0].StartPoint().Row) + 1
	}
	endLine := int(cls.EndPoint().Row) + 1

	nameNode := cls.ChildByFieldName("name")
	localName := ""
	if nameNode != nil {
		localName = nameNode.Content(w.src)
	}
	qualifiedName := localName
	if parentName != "" {
		qualifiedName = parentName + "." + localName
	}

	el := w.finish(model.KindClass, fmt.Sprintf("%s (L%d)", qualifiedName, startLine), startLine, endLine, nil)
	el.QualifiedName = qualifiedName

	body := cls.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			if childEl := w.processNode(child, true, qualifiedName); childEl != nil {
				childEl.Parent = el
				el.Children = append(el.Children, childEl)
			}
		}
	}
	return el
}

func (w *walker) processAssignment(node *sitter.Node, isChild bool, startLine, endLine int) *model.Element {
	firstLine := firstLine(strings.TrimSpace(node.Content(w.src)))
	kind := model.KindVariableDefinition
	if isChild {
		kind = model.KindClassVariable
	}
	return w.finish(kind, fmt.Sprintf("%s (L%d)", firstLine, startLine), startLine, endLine, nil)
}

func (w *walker) finish(kind model.ElementKind, name string, startLine, endLine int, meta any) *model.Element {
	if len(name) > 80 {
		name = name[:77] + "..."
	}
	return &model.Element{
		Kind:     kind,
		Name:     name,
		Location: model.Location{StartLine: startLine, EndLine: endLine},
		Metadata: meta,
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// parseAPIDecorator recognizes <identifier>.<verb>("path", ...) and
// returns the route it declares, or nil if the decorator does not match.
func parseAPIDecorator(decorator *sitter.Node, src []byte) *model.APIRoute {
	expr := decorator
	if decorator.NamedChildCount() > 0 {
		expr = decorator.NamedChild(0)
	}
	if expr.Type() != "call" {
		return nil
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return nil
	}
	attr := fn.ChildByFieldName("attribute")
	if attr == nil {
		return nil
	}
	method := strings.ToLower(attr.Content(src))
	if !httpVerbs[method] {
		return nil
	}
	args := expr.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return nil
	}
	path := stringLiteralValue(first, src)
	return &model.APIRoute{Method: strings.ToUpper(method), Path: path}
}

// stringLiteralValue strips the surrounding quote characters (and any
// f/r/b prefix) from a tree-sitter Python "string" node.
func stringLiteralValue(node *sitter.Node, src []byte) string {
	raw := node.Content(src)
	raw = strings.TrimLeft(raw, "fFrRbB")
	raw = strings.Trim(raw, `"'`)
	return raw
}

// internalCalls walks the entire subtree (including nested function and
// class bodies, matching ast.walk's unconditional recursion) collecting
// every call target name.
func internalCalls(node *sitter.Node, src []byte) []string {
	set := map[string]bool{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call" {
			fn := n.ChildByFieldName("function")
			if fn != nil {
				switch fn.Type() {
				case "identifier":
					set[fn.Content(src)] = true
				case "attribute":
					if attr := fn.ChildByFieldName("attribute"); attr != nil {
						set[attr.Content(src)] = true
					}
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
