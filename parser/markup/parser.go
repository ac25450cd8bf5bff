// Package markup implements the Markup Parser (spec §4.4): a two-tier
// HTML extractor. The primary pass uses a tree-sitter HTML grammar for
// accurate per-element source lines; when that grammar is unavailable or
// the parse fails, a fallback pass uses a line-unaware HTML5 tokenizer
// and reports every element at start_line = 1 (an acknowledged accuracy
// loss, not a bug — see the Open Question decisions in SPEC_FULL.md).
package markup

import (
	"context"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tshtml "github.com/smacker/go-tree-sitter/html"
	"golang.org/x/net/html"

	"github.com/corelens/tracecore/model"
)

var interactiveTags = map[string]bool{"button": true, "select": true, "textarea": true}
var structuralTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "label": true, "p": true}

// Parser parses HTML-like input into ui_element trees.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Parse(ctx context.Context, src []byte) ([]*model.Element, error) {
	if len(strings.TrimSpace(string(src))) == 0 {
		return nil, nil
	}
	if els, ok := p.parseWithTreeSitter(ctx, src); ok {
		return els, nil
	}
	return p.parseFallback(src), nil
}

// parseWithTreeSitter is the primary, line-accurate pass. ok is false
// when the grammar could not produce a usable parse, signaling the
// caller to fall back.
func (p *Parser) parseWithTreeSitter(ctx context.Context, src []byte) (els []*model.Element, ok bool) {
	defer func() {
		if recover() != nil {
			els, ok = nil, false
		}
	}()
	sp := sitter.NewParser()
	sp.SetLanguage(tshtml.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil, false
	}
	root := tree.RootNode()
	if root == nil {
		return nil, false
	}

	w := &tsWalker{src: src, nameCounts: map[string]int{}}
	var roots []*model.Element
	w.walkChildren(root, nil, &roots)
	sortByLine(roots)
	return roots, true
}

type tsWalker struct {
	src        []byte
	nameCounts map[string]int
}

func (w *tsWalker) walkChildren(n *sitter.Node, parent *model.Element, roots *[]*model.Element) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "element" && child.Type() != "script_element" && child.Type() != "style_element" {
			w.walkChildren(child, parent, roots)
			continue
		}
		el := w.visitElement(child, roots, parent)
		if el != nil {
			w.walkChildren(child, el, roots)
		} else {
			w.walkChildren(child, parent, roots)
		}
	}
}

func (w *tsWalker) visitElement(n *sitter.Node, roots *[]*model.Element, parent *model.Element) *model.Element {
	startTag := firstChildOfType(n, "start_tag")
	if startTag == nil {
		startTag = firstChildOfType(n, "self_closing_tag")
	}
	if startTag == nil {
		return nil
	}
	tagNameNode := firstChildOfType(startTag, "tag_name")
	if tagNameNode == nil {
		return nil
	}
	tag := strings.ToLower(tagNameNode.Content(w.src))
	attrs := w.attributes(startTag)

	hasChildElement := firstChildOfType(n, "element") != nil
	if !isUIElementWithDiv(tag, attrs, textContent(n, w.src), hasChildElement) {
		return nil
	}

	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	text := strings.TrimSpace(textContent(n, w.src))
	display := text
	if len(display) > 40 {
		display = display[:40] + "..."
	}

	var nameParts []string
	nameParts = append(nameParts, "<"+tag+">")
	if id, ok := attrs["id"]; ok && id != "" {
		nameParts = append(nameParts, "id='"+id+"'")
	}
	if display != "" {
		nameParts = append(nameParts, "'"+display+"'")
	}
	name := strings.Join(nameParts, " ") + " (L" + strconv.Itoa(startLine) + ")"

	meta := buildMetadata(tag, attrs)
	el := &model.Element{
		Kind:     model.KindUIElement,
		Name:     name,
		Location: model.Location{StartLine: startLine, EndLine: endLine},
		Metadata: meta,
		Parent:   parent,
	}
	if parent != nil {
		parent.Children = append(parent.Children, el)
	} else {
		*roots = append(*roots, el)
	}
	return el
}

func (w *tsWalker) attributes(startTag *sitter.Node) map[string]string {
	out := map[string]string{}
	for i := 0; i < int(startTag.NamedChildCount()); i++ {
		attr := startTag.NamedChild(i)
		if attr.Type() != "attribute" {
			continue
		}
		nameNode := firstChildOfType(attr, "attribute_name")
		if nameNode == nil {
			continue
		}
		key := strings.ToLower(nameNode.Content(w.src))
		value := ""
		if valNode := firstChildOfType(attr, "quoted_attribute_value"); valNode != nil {
			value = strings.Trim(valNode.Content(w.src), `"'`)
		} else if valNode := firstChildOfType(attr, "attribute_value"); valNode != nil {
			value = valNode.Content(w.src)
		}
		out[key] = value
	}
	return out
}

func firstChildOfType(n *sitter.Node, t string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == t {
			return c
		}
	}
	return nil
}

func textContent(n *sitter.Node, src []byte) string {
	var b strings.Builder
	var walk func(x *sitter.Node)
	walk = func(x *sitter.Node) {
		if x.Type() == "text" {
			b.WriteString(x.Content(src))
		}
		for i := 0; i < int(x.ChildCount()); i++ {
			walk(x.Child(i))
		}
	}
	walk(n)
	return b.String()
}

// isUIElementWithDiv mirrors html_parser.py's is_ui_element predicate
// exactly, including its div special case: a div qualifies only when it
// has at least one child element or non-empty direct text.
func isUIElementWithDiv(tag string, attrs map[string]string, text string, hasChildElement bool) bool {
	if tag == "" {
		return false
	}
	if interactiveTags[tag] {
		return true
	}
	if tag == "input" {
		t := strings.ToLower(strings.TrimSpace(attrs["type"]))
		if t == "" {
			t = "text"
		}
		if t != "hidden" {
			return true
		}
	}
	if _, ok := attrs["onclick"]; ok {
		return true
	}
	if tag == "a" {
		href := strings.TrimSpace(attrs["href"])
		_, hasOnclick := attrs["onclick"]
		if hasOnclick || href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}
	}
	if structuralTags[tag] {
		return strings.TrimSpace(text) != ""
	}
	if tag == "div" {
		return hasChildElement || strings.TrimSpace(text) != ""
	}
	return false
}

func buildMetadata(tag string, attrs map[string]string) *model.UIElementMetadata {
	meta := &model.UIElementMetadata{Tag: tag}
	if id, ok := attrs["id"]; ok {
		meta.ID = id
	}
	if classes, ok := attrs["class"]; ok && classes != "" {
		meta.Classes = strings.Fields(classes)
	}
	if onclick, ok := attrs["onclick"]; ok {
		meta.Onclick = onclick
	}
	if tag == "a" {
		meta.Href = attrs["href"]
	}
	if tag == "input" {
		meta.Type = attrs["type"]
		meta.Value = attrs["value"]
	}
	if tag == "label" {
		meta.For = attrs["for"]
	}
	return meta
}

func sortByLine(els []*model.Element) {
	sort.SliceStable(els, func(i, j int) bool { return els[i].Location.StartLine < els[j].Location.StartLine })
}

// parseFallback uses golang.org/x/net/html, which carries no position
// information: every element is reported at start_line = 1, and names
// are disambiguated with a "(N)" suffix instead of a line number.
func (p *Parser) parseFallback(src []byte) []*model.Element {
	doc, err := html.Parse(strings.NewReader(string(src)))
	if err != nil {
		return nil
	}
	nameCounts := map[string]int{}
	var out []*model.Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			attrs := map[string]string{}
			for _, a := range n.Attr {
				attrs[strings.ToLower(a.Key)] = a.Val
			}
			text := strings.TrimSpace(fallbackText(n))
			hasChildElement := false
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					hasChildElement = true
					break
				}
			}
			if isUIElementWithDiv(tag, attrs, text, hasChildElement) {
				out = append(out, fallbackElement(n, tag, attrs, text, nameCounts))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func fallbackText(n *html.Node) string {
	var b strings.Builder
	var walk func(x *html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func fallbackElement(n *html.Node, tag string, attrs map[string]string, text string, nameCounts map[string]int) *model.Element {
	display := text
	if len(display) > 40 {
		display = display[:40] + "..."
	}
	var nameParts []string
	nameParts = append(nameParts, "<"+tag+">")
	if id, ok := attrs["id"]; ok && id != "" {
		nameParts = append(nameParts, "id='"+id+"'")
	}
	if display != "" {
		nameParts = append(nameParts, "'"+display+"'")
	}
	name := strings.Join(nameParts, " ")
	nameCounts[name]++
	if nameCounts[name] > 1 {
		name = name + " (" + strconv.Itoa(nameCounts[name]) + ")"
	}
	return &model.Element{
		Kind:     model.KindUIElement,
		Name:     name,
		Location: model.Location{StartLine: 1, EndLine: 1},
		Metadata: buildMetadata(tag, attrs),
	}
}
