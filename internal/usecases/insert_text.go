package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/domain"
	"replykit/internal/textwalk"
	"replykit/pkg/log"
)

// FocusTracker remembers the last editable element that received focus on
// one document. Clicks count too, since some rich editors take input without
// a focus event. A tracker lives as long as its document; Close detaches it.
type FocusTracker struct {
	mu          sync.Mutex
	last        *dom.Element
	unsubscribe func()
}

// NewFocusTracker starts tracking doc, seeded with its active element.
func NewFocusTracker(doc *dom.Document) *FocusTracker {
	t := &FocusTracker{}
	if active := doc.ActiveElement(); active != nil && active.IsEditable() {
		t.last = active
	}
	t.unsubscribe = doc.Subscribe(t.observe)
	return t
}

func (t *FocusTracker) observe(ev dom.Event) {
	if ev.Type != dom.EventFocusIn && ev.Type != dom.EventClick {
		return
	}
	if ev.Target == nil || !ev.Target.IsEditable() {
		return
	}
	t.mu.Lock()
	t.last = ev.Target
	t.mu.Unlock()
}

// LastFocused returns the remembered element, or nil once it has left the
// document.
func (t *FocusTracker) LastFocused() *dom.Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil || !t.last.Attached() {
		t.last = nil
		return nil
	}
	return t.last
}

// Close stops tracking and forgets the element.
func (t *FocusTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.last = nil
}

// ResolveTarget finds the element to write into: the element at
// targetSelector, then the adapter's reply box, then the last focused
// editable element.
func ResolveTarget(doc *dom.Document, adapter platform.Adapter, tracker *FocusTracker, targetSelector string) (*dom.Element, error) {
	if targetSelector != "" {
		if el := doc.Query(targetSelector); el != nil && el.IsEditable() {
			return el, nil
		}
		log.GlobalDebug("target selector did not resolve to an editable element", "selector", targetSelector)
	}
	if adapter != nil {
		if el := adapter.FindReplyInput(doc); el != nil {
			return el, nil
		}
	}
	if tracker != nil {
		if el := tracker.LastFocused(); el != nil {
			return el, nil
		}
	}
	return nil, domain.ErrNoInputField
}

// InsertStrategy names how text ended up in the input.
type InsertStrategy string

const (
	StrategyAdapter  InsertStrategy = "adapter"
	StrategyFallback InsertStrategy = "fallback"
)

// InsertResult reports an insertion.
type InsertResult struct {
	Strategy      InsertStrategy `json:"strategy"`
	Matched       bool           `json:"matched"`
	InputSelector string         `json:"inputSelector"`
}

// Insert replaces the content of el with text through the adapter. When the
// adapter fails, the previous text is restored and ErrInsertionFailed is
// returned. When the adapter leaves the input empty, the generic editing
// path is tried.
func Insert(el *dom.Element, text string, adapter platform.Adapter) (*InsertResult, error) {
	previous := adapter.GetInputText(el)

	if err := adapter.SetInputText(el, text, false); err != nil {
		restore(el, previous)
		return nil, fmt.Errorf("%w: %w", domain.ErrInsertionFailed, err)
	}

	result := &InsertResult{Strategy: StrategyAdapter, InputSelector: dom.CSSPath(el)}
	got := adapter.GetInputText(el)
	if strings.TrimSpace(got) == "" && strings.TrimSpace(text) != "" {
		if err := fallbackInsert(el, text); err != nil {
			restore(el, previous)
			return nil, fmt.Errorf("%w: fallback: %w", domain.ErrInsertionFailed, err)
		}
		result.Strategy = StrategyFallback
		got = adapter.GetInputText(el)
	}

	result.Matched = textwalk.NormalizeSpace(got) == textwalk.NormalizeSpace(text)
	if !result.Matched {
		log.GlobalWarn("inserted text differs from the input's content", "platform", adapter.Platform(), "strategy", result.Strategy)
	}
	return result, nil
}

// fallbackInsert focuses el and writes text the way typing would, then
// notifies the page.
func fallbackInsert(el *dom.Element, text string) error {
	doc := el.Document()
	if err := doc.Focus(el); err != nil {
		return err
	}
	if err := el.InsertText(text); err != nil {
		return err
	}
	for _, ev := range []dom.EventType{dom.EventInput, dom.EventChange} {
		if err := doc.Dispatch(el, ev); err != nil {
			return err
		}
	}
	return nil
}

func restore(el *dom.Element, previous string) {
	var err error
	if el.IsTextField() {
		err = el.SetValue(previous)
	} else {
		err = el.SetText(previous)
	}
	if err != nil {
		log.GlobalError("could not restore previous input text", "error", err)
	}
}

// InsertTextUseCase places text into the reply box of a page.
type InsertTextUseCase struct {
	registry AdapterRegistry
}

// NewInsertTextUseCase creates a new InsertTextUseCase.
func NewInsertTextUseCase(registry AdapterRegistry) *InsertTextUseCase {
	return &InsertTextUseCase{registry: registry}
}

// Execute writes text into the target resolved on doc.
func (uc *InsertTextUseCase) Execute(ctx context.Context, doc *dom.Document, tracker *FocusTracker, text, targetSelector string) (*InsertResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", domain.ErrValidation)
	}
	adapter := uc.registry.Adapter(doc.URL())
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, doc.URL())
	}

	el, err := ResolveTarget(doc, adapter, tracker, targetSelector)
	if err != nil {
		return nil, err
	}
	result, err := Insert(el, text, adapter)
	if err != nil {
		log.GlobalErrorCtx(ctx, "insertion failed", "platform", adapter.Platform(), "error", err)
		return nil, err
	}
	log.GlobalInfoCtx(ctx, "text inserted", "platform", adapter.Platform(), "strategy", result.Strategy, "matched", result.Matched)
	return result, nil
}

// Draft is the current content of a page's reply box.
type Draft struct {
	Text          string `json:"text"`
	InputSelector string `json:"inputSelector"`
}

// GetDraftUseCase reads what the user has typed so far.
type GetDraftUseCase struct {
	registry AdapterRegistry
}

// NewGetDraftUseCase creates a new GetDraftUseCase.
func NewGetDraftUseCase(registry AdapterRegistry) *GetDraftUseCase {
	return &GetDraftUseCase{registry: registry}
}

// Execute returns the draft text and a selector that re-locates its input.
func (uc *GetDraftUseCase) Execute(ctx context.Context, doc *dom.Document, tracker *FocusTracker) (*Draft, error) {
	adapter := uc.registry.Adapter(doc.URL())
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, doc.URL())
	}
	el, err := ResolveTarget(doc, adapter, tracker, "")
	if err != nil {
		return nil, err
	}
	return &Draft{Text: adapter.GetInputText(el), InputSelector: dom.CSSPath(el)}, nil
}
