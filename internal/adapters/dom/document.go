// Package dom models a page as a parsed HTML snapshot that adapters can
// query and mutate. Mutations and synthetic events are recorded, delivered
// to subscribers and optionally mirrored into a live browser tab.
package dom

import (
	"bytes"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attributes stamped onto a live page before it is snapshotted.
const (
	AttrFocused = "data-rk-focused"
	AttrHidden  = "data-rk-hidden"
)

// EventType names a DOM event.
type EventType string

const (
	EventFocusIn EventType = "focusin"
	EventClick   EventType = "click"
	EventInput   EventType = "input"
	EventChange  EventType = "change"
)

// Event is a dispatched DOM event.
type Event struct {
	Type   EventType
	Target *Element
}

// MutationKind says how a Mutation changes the page.
type MutationKind int

const (
	MutationSetValue MutationKind = iota
	MutationSetText
	MutationInsertText
	MutationFocus
	MutationDispatch
)

// Mutation describes one change for a Mirror. Path is the element's
// StructuralPath.
type Mutation struct {
	Kind  MutationKind
	Path  string
	Value string
}

// Mirror replays snapshot mutations somewhere else, typically a live tab.
type Mirror interface {
	Apply(m Mutation) error
}

// Document is a parsed page snapshot. It is not safe for concurrent
// mutation; subscriber management is.
type Document struct {
	url    string
	gq     *goquery.Document
	active *html.Node
	mirror Mirror

	mu        sync.Mutex
	listeners map[int]func(Event)
	nextID    int
	events    []Event
}

// Parse builds a Document for the page at rawURL from its markup. The
// element carrying AttrFocused, or failing that autofocus, becomes the
// active element.
func Parse(rawURL, markup string) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	d := &Document{
		url:       rawURL,
		gq:        gq,
		listeners: make(map[int]func(Event)),
	}
	if n := gq.Find("[" + AttrFocused + "]").First(); n.Length() > 0 {
		d.active = n.Nodes[0]
	} else if n := gq.Find("[autofocus]").First(); n.Length() > 0 {
		d.active = n.Nodes[0]
	}
	return d, nil
}

// URL returns the page address.
func (d *Document) URL() string { return d.url }

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.gq.Find("title").First().Text())
}

// SetMirror attaches m; subsequent mutations are forwarded to it.
func (d *Document) SetMirror(m Mirror) { d.mirror = m }

// Find returns every element matching selector in document order. An
// invalid selector matches nothing.
func (d *Document) Find(selector string) []*Element {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	return d.wrap(d.gq.Find(selector).Nodes)
}

// First tries the selectors in order and returns the first element matched
// by the first selector that matches anything.
func (d *Document) First(selectors ...string) *Element {
	for _, sel := range selectors {
		if els := d.Find(sel); len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	return d.First("body")
}

// ActiveElement returns the focused element, or nil when it is unset or no
// longer attached.
func (d *Document) ActiveElement() *Element {
	if d.active == nil {
		return nil
	}
	el := d.element(d.active)
	if !el.Attached() {
		return nil
	}
	return el
}

// Focus makes el the active element and fires focusin.
func (d *Document) Focus(el *Element) error {
	d.active = el.node
	if err := d.mirrorApply(Mutation{Kind: MutationFocus, Path: el.StructuralPath()}); err != nil {
		return err
	}
	d.emit(Event{Type: EventFocusIn, Target: el})
	return nil
}

// Click fires a click on el. Like some contenteditable regions in real
// pages, it does not move focus.
func (d *Document) Click(el *Element) {
	d.emit(Event{Type: EventClick, Target: el})
}

// Dispatch fires a synthetic event of type t on el.
func (d *Document) Dispatch(el *Element, t EventType) error {
	if err := d.mirrorApply(Mutation{Kind: MutationDispatch, Path: el.StructuralPath(), Value: string(t)}); err != nil {
		return err
	}
	d.emit(Event{Type: t, Target: el})
	return nil
}

// Events returns every event fired so far, in order.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (d *Document) Subscribe(fn func(Event)) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.gq.Nodes[0]); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Query resolves a path produced by CSSPath or StructuralPath.
func (d *Document) Query(path string) *Element {
	return d.First(path)
}

func (d *Document) emit(ev Event) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	fns := make([]func(Event), 0, len(d.listeners))
	for id := 0; id < d.nextID; id++ {
		if fn, ok := d.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (d *Document) mirrorApply(m Mutation) error {
	if d.mirror == nil {
		return nil
	}
	return d.mirror.Apply(m)
}

func (d *Document) element(n *html.Node) *Element {
	return &Element{node: n, doc: d}
}

func (d *Document) wrap(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.element(n))
	}
	return out
}
