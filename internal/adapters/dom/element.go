package dom

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"replykit/internal/textwalk"
)

// Element is a handle to one element node of a Document.
type Element struct {
	node *html.Node
	doc  *Document
}

// Node exposes the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Same reports whether e and other refer to the same node.
func (e *Element) Same(other *Element) bool {
	return e != nil && other != nil && e.node == other.node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value, or def when it is absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

func (e *Element) setAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

// Find returns the descendants of e matching selector.
func (e *Element) Find(selector string) []*Element {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	return e.doc.wrap(e.selection().Find(selector).Nodes)
}

// First tries the selectors in order against e's descendants.
func (e *Element) First(selectors ...string) *Element {
	for _, sel := range selectors {
		if els := e.Find(sel); len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// Matches reports whether e itself matches selector.
func (e *Element) Matches(selector string) bool {
	return e.selection().Is(selector)
}

// Closest returns the nearest ancestor-or-self matching selector.
func (e *Element) Closest(selector string) *Element {
	sel := e.selection().Closest(selector)
	if sel.Length() == 0 {
		return nil
	}
	return e.doc.element(sel.Nodes[0])
}

// Parent returns the parent element, or nil at the top.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.element(p)
}

// Children returns the element children in order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.element(c))
		}
	}
	return out
}

// Text returns the concatenated text content of e.
func (e *Element) Text() string {
	return e.selection().Text()
}

// InnerText approximates the rendered text of e: <br> and block
// boundaries become line breaks, scripts and hidden subtrees are skipped,
// and whitespace is collapsed per line.
func (e *Element) InnerText() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipForText(n) || hiddenNode(n) {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return textwalk.NormalizeLines(b.String())
}

// IsTextField reports whether e is a <textarea> or a text-like <input>.
func (e *Element) IsTextField() bool {
	switch e.node.DataAtom {
	case atom.Textarea:
		return true
	case atom.Input:
		switch strings.ToLower(e.AttrOr("type", "text")) {
		case "text", "search", "email", "url", "":
			return true
		}
	}
	return false
}

// IsContentEditable reports whether e or an ancestor is contenteditable.
func (e *Element) IsContentEditable() bool {
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		v, ok := (&Element{node: n}).Attr("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// IsEditable reports whether text can be typed into e.
func (e *Element) IsEditable() bool {
	if e.IsTextField() {
		_, disabled := e.Attr("disabled")
		_, readonly := e.Attr("readonly")
		return !disabled && !readonly
	}
	return e.IsContentEditable()
}

// IsVisible reports whether neither e nor any ancestor is hidden by
// attribute or inline style, and e is not stamped as zero-size.
func (e *Element) IsVisible() bool {
	if strings.EqualFold(e.AttrOr("type", ""), "hidden") {
		return false
	}
	if zeroSize.MatchString(strings.ToLower(e.AttrOr("style", ""))) {
		return false
	}
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if hiddenNode(n) {
			return false
		}
	}
	return true
}

// Attached reports whether e is still part of its document's tree.
func (e *Element) Attached() bool {
	root := e.doc.gq.Nodes[0]
	for n := e.node; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Remove detaches e from the tree.
func (e *Element) Remove() {
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

// Value returns the current value of a text field, or "" for other
// elements.
func (e *Element) Value() string {
	switch e.node.DataAtom {
	case atom.Textarea:
		var b strings.Builder
		for c := e.node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return b.String()
	case atom.Input:
		return e.AttrOr("value", "")
	}
	return ""
}

// SetValue assigns the value of a text field.
func (e *Element) SetValue(v string) error {
	if err := e.doc.mirrorApply(Mutation{Kind: MutationSetValue, Path: e.StructuralPath(), Value: v}); err != nil {
		return err
	}
	if e.node.DataAtom == atom.Textarea {
		e.replaceChildren(&html.Node{Type: html.TextNode, Data: v})
		return nil
	}
	e.setAttr("value", v)
	return nil
}

// SetText replaces the content of a contenteditable element with text,
// one line per line break.
func (e *Element) SetText(text string) error {
	if err := e.doc.mirrorApply(Mutation{Kind: MutationSetText, Path: e.StructuralPath(), Value: text}); err != nil {
		return err
	}
	e.replaceChildren(textNodes(text)...)
	return nil
}

// InsertText is the generic editing path: select everything in e and
// insert text over the selection, as a user typing would.
func (e *Element) InsertText(text string) error {
	if err := e.doc.mirrorApply(Mutation{Kind: MutationInsertText, Path: e.StructuralPath(), Value: text}); err != nil {
		return err
	}
	if e.IsTextField() {
		if e.node.DataAtom == atom.Textarea {
			e.replaceChildren(&html.Node{Type: html.TextNode, Data: text})
		} else {
			e.setAttr("value", text)
		}
		return nil
	}
	e.replaceChildren(textNodes(text)...)
	return nil
}

func (e *Element) replaceChildren(nodes ...*html.Node) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
}

func textNodes(text string) []*html.Node {
	var out []*html.Node
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out = append(out, &html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		}
		if line != "" {
			out = append(out, &html.Node{Type: html.TextNode, Data: line})
		}
	}
	return out
}

var zeroSize = regexp.MustCompile(`(^|;)\s*(width|height)\s*:\s*0(px)?\s*(;|$)`)

var hiddenStyle = regexp.MustCompile(`(^|;)\s*(display\s*:\s*none|visibility\s*:\s*hidden)\s*(;|$|!)`)

func hiddenNode(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden", AttrHidden:
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			if hiddenStyle.MatchString(strings.ToLower(a.Val)) {
				return true
			}
		}
	}
	return false
}

func skipForText(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
		return true
	}
	return false
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true,
}
