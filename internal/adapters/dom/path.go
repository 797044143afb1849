package dom

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var cssIdent = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// CSSPath returns a best-effort selector that re-locates e across a round
// trip: its id, else its data-testid, else a class and nth-child walk up
// to <body>.
func CSSPath(e *Element) string {
	if id, ok := e.Attr("id"); ok && id != "" {
		if sel := idSelector(id); e.unique(sel) {
			return sel
		}
	}
	if tid, ok := e.Attr("data-testid"); ok && tid != "" {
		if sel := e.Tag() + `[data-testid="` + escapeAttr(tid) + `"]`; e.unique(sel) {
			return sel
		}
	}

	var parts []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if n.Data == "body" || n.Data == "html" {
			break
		}
		el := &Element{node: n, doc: e.doc}
		if n != e.node {
			if id, ok := el.Attr("id"); ok && cssIdent.MatchString(id) {
				parts = append(parts, "#"+id)
				return joinReversed(parts)
			}
		}
		part := n.Data
		for _, cls := range strings.Fields(el.AttrOr("class", "")) {
			if cssIdent.MatchString(cls) {
				part += "." + cls
			}
		}
		part += ":nth-child(" + strconv.Itoa(elementIndex(n)) + ")"
		parts = append(parts, part)
	}
	parts = append(parts, "body")
	return joinReversed(parts)
}

// StructuralPath returns an exact :nth-child chain from <html> to e.
func (e *Element) StructuralPath() string {
	var parts []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if n.Data == "html" {
			parts = append(parts, "html")
			break
		}
		parts = append(parts, n.Data+":nth-child("+strconv.Itoa(elementIndex(n))+")")
	}
	return joinReversed(parts)
}

func (e *Element) unique(selector string) bool {
	els := e.doc.Find(selector)
	return len(els) == 1 && els[0].node == e.node
}

func idSelector(id string) string {
	if cssIdent.MatchString(id) {
		return "#" + id
	}
	return `[id="` + escapeAttr(id) + `"]`
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// elementIndex is the 1-based position of n among its element siblings.
func elementIndex(n *html.Node) int {
	i := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			i++
		}
	}
	return i
}

func joinReversed(parts []string) string {
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
