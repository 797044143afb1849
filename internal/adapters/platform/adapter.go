// Package platform holds the per-site adapters that locate threads and reply
// boxes on Reddit, Twitter/X and Facebook pages, the selectors they use and
// the registry that picks one for a URL.
package platform

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"replykit/internal/adapters/dom"
	"replykit/internal/domain"
	"replykit/internal/textwalk"
	"replykit/pkg/log"
)

// Text limits, in runes, applied to everything an adapter extracts.
const (
	MaxTitleLength   = 300
	MaxBodyLength    = 4000
	MaxCommentLength = 1000
)

// Adapter knows how to read and write one platform's pages.
type Adapter interface {
	Platform() domain.Platform
	CanHandle(rawURL string) bool

	// ExtractThreadContext returns nil when the page has nothing usable.
	// It never panics.
	ExtractThreadContext(doc *dom.Document) *domain.ThreadContext

	// FindReplyInput returns nil when no visible reply box exists.
	FindReplyInput(doc *dom.Document) *dom.Element
	GetInputText(el *dom.Element) string
	SetInputText(el *dom.Element, text string, appendText bool) error

	Selectors() PlatformSelectors
}

// base carries the behaviour every adapter shares.
type base struct {
	platform  domain.Platform
	selectors *SelectorRegistry
	patterns  []*regexp.Regexp
	now       func() time.Time
}

func newBase(p domain.Platform, selectors *SelectorRegistry, patterns ...string) base {
	b := base{
		platform:  p,
		selectors: selectors,
		now:       time.Now,
	}
	for _, pat := range patterns {
		b.patterns = append(b.patterns, regexp.MustCompile(pat))
	}
	return b
}

func (b *base) Platform() domain.Platform { return b.platform }

func (b *base) Selectors() PlatformSelectors { return b.selectors.For(b.platform) }

func (b *base) CanHandle(rawURL string) bool {
	for _, p := range b.patterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (b *base) logger() *log.Logger {
	return log.Default().Named("adapter." + string(b.platform))
}

// guard runs extract and turns a panic into a nil result.
func (b *base) guard(doc *dom.Document, extract func() *domain.ThreadContext) (tc *domain.ThreadContext) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Error("thread extraction failed", "url", doc.URL(), "panic", fmt.Sprint(r))
			tc = nil
		}
	}()
	return extract()
}

// newContext builds a context with the shared truncation policy applied.
func (b *base) newContext(doc *dom.Document, title, body, author string, comments []domain.Comment) *domain.ThreadContext {
	if comments == nil {
		comments = []domain.Comment{}
	}
	return &domain.ThreadContext{
		Platform:    b.platform,
		URL:         doc.URL(),
		PostTitle:   textwalk.Truncate(title, MaxTitleLength),
		PostBody:    textwalk.Truncate(body, MaxBodyLength),
		PostAuthor:  author,
		Comments:    comments,
		ExtractedAt: b.now().UnixMilli(),
	}
}

// FindReplyInput prefers the focused element when it is a contenteditable
// region or a textarea, then scans the reply_input selectors for the first
// visible editable match.
func (b *base) FindReplyInput(doc *dom.Document) *dom.Element {
	if active := doc.ActiveElement(); active != nil && isReplyBox(active) {
		return active
	}
	for _, sel := range b.Selectors().ReplyInput {
		for _, el := range doc.Find(sel) {
			if target := editableWithin(el); target != nil && target.IsVisible() {
				return target
			}
		}
	}
	return nil
}

func isReplyBox(el *dom.Element) bool {
	if !el.IsEditable() {
		return false
	}
	return el.IsContentEditable() || el.Tag() == "textarea"
}

// editableWithin returns el when it is editable, otherwise its first
// editable descendant. Wrappers such as custom composer elements resolve to
// the region inside them.
func editableWithin(el *dom.Element) *dom.Element {
	if el.IsEditable() {
		return el
	}
	for _, inner := range el.Find(`[contenteditable="true"], [contenteditable=""], textarea`) {
		if inner.IsEditable() {
			return inner
		}
	}
	return nil
}

// GetInputText reads a text field's value or a rich editor's rendered text.
func (b *base) GetInputText(el *dom.Element) string {
	if el == nil {
		return ""
	}
	if el.IsTextField() {
		return el.Value()
	}
	return el.InnerText()
}

// SetInputText writes text (or appends it) and fires input and change so
// page frameworks notice the edit.
func (b *base) SetInputText(el *dom.Element, text string, appendText bool) error {
	if el == nil {
		return domain.ErrNoInputField
	}
	next := text
	if appendText {
		next = b.GetInputText(el) + text
	}

	var err error
	if el.IsTextField() {
		err = el.SetValue(next)
	} else {
		err = el.SetText(next)
	}
	if err != nil {
		return fmt.Errorf("set %s input: %w", b.platform, err)
	}

	doc := el.Document()
	for _, ev := range []dom.EventType{dom.EventInput, dom.EventChange} {
		if err := doc.Dispatch(el, ev); err != nil {
			return fmt.Errorf("dispatch %s: %w", ev, err)
		}
	}
	return nil
}

// idGen hands out comment ids unique within one extraction pass.
type idGen struct {
	prefix string
	n      int
	seen   map[string]bool
}

func newIDGen(prefix string) *idGen {
	return &idGen{prefix: prefix, seen: make(map[string]bool)}
}

// claim returns native when it is non-empty and unused, otherwise a
// generated id.
func (g *idGen) claim(native string) string {
	native = strings.TrimSpace(native)
	if native != "" && !g.seen[native] {
		g.seen[native] = true
		return native
	}
	for {
		g.n++
		id := fmt.Sprintf("%s-c%d", g.prefix, g.n)
		if !g.seen[id] {
			g.seen[id] = true
			return id
		}
	}
}

// firstAll returns every match of the first selector that matches
// anything, together with that selector.
func firstAll(doc *dom.Document, selectors []string) ([]*dom.Element, string) {
	for _, sel := range selectors {
		if els := doc.Find(sel); len(els) > 0 {
			return els, sel
		}
	}
	return nil, ""
}

// ownFirst finds the first descendant of container matched by selectors
// whose nearest enclosing container (per containerSel) is container itself,
// so nested comments do not leak their text into their parent.
func ownFirst(container *dom.Element, containerSel string, selectors []string) *dom.Element {
	for _, sel := range selectors {
		for _, el := range container.Find(sel) {
			if owner := enclosing(el, containerSel); owner == nil || owner.Same(container) {
				return el
			}
		}
	}
	return nil
}

// enclosing returns the nearest strict ancestor of el matching selector.
func enclosing(el *dom.Element, selector string) *dom.Element {
	parent := el.Parent()
	if parent == nil {
		return nil
	}
	return parent.Closest(selector)
}

// depthOf counts the strict ancestors of el matching selector.
func depthOf(el *dom.Element, selector string) int {
	depth := 0
	for p := enclosing(el, selector); p != nil; p = enclosing(p, selector) {
		depth++
	}
	return depth
}

func authorOrDeleted(name string) string {
	name = textwalk.NormalizeSpace(name)
	if name == "" || strings.EqualFold(name, domain.DeletedAuthor) || strings.EqualFold(name, "deleted") {
		return domain.DeletedAuthor
	}
	return name
}
