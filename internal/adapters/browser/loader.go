package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/pkg/json"
	"replykit/pkg/log"
)

// DefaultLoadTimeout bounds one Load or Insert call.
const DefaultLoadTimeout = 45 * time.Second

// TabRunner hands out exclusive browser tabs.
type TabRunner interface {
	WithTabCtx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Loader navigates a tab to a thread page and snapshots it.
type Loader struct {
	tabs    TabRunner
	timeout time.Duration
	logger  *log.Logger
}

// NewLoader returns a Loader over tabs. A non-positive timeout uses
// DefaultLoadTimeout.
func NewLoader(tabs TabRunner, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Loader{
		tabs:    tabs,
		timeout: timeout,
		logger:  log.Default().Named("browser.loader"),
	}
}

// Load opens rawURL and returns its snapshot. When adapter is non-nil its
// post container selectors gate readiness within the adapter's limits.
func (l *Loader) Load(ctx context.Context, rawURL string, adapter platform.Adapter) (*dom.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var doc *dom.Document
	err := l.tabs.WithTabCtx(ctx, func(tabCtx context.Context) error {
		var err error
		doc, err = l.open(tabCtx, rawURL, adapter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert opens rawURL, runs fn on the snapshot with a LiveMirror attached
// so edits reach the tab, and returns the tab's markup afterwards.
func (l *Loader) Insert(ctx context.Context, rawURL string, adapter platform.Adapter, fn func(doc *dom.Document) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var live string
	err := l.tabs.WithTabCtx(ctx, func(tabCtx context.Context) error {
		doc, err := l.open(tabCtx, rawURL, adapter)
		if err != nil {
			return err
		}
		doc.SetMirror(NewLiveMirror(tabCtx))
		if err := fn(doc); err != nil {
			return err
		}
		return chromedp.Run(tabCtx, chromedp.OuterHTML("html", &live, chromedp.ByQuery))
	})
	if err != nil {
		return "", err
	}
	return live, nil
}

func (l *Loader) open(tabCtx context.Context, rawURL string, adapter platform.Adapter) (*dom.Document, error) {
	start := time.Now()
	if err := chromedp.Run(tabCtx, chromedp.Navigate(rawURL)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if adapter != nil {
		sel := adapter.Selectors()
		script, err := readyScript(sel.PostContainer)
		if err != nil {
			return nil, err
		}
		check := func(ctx context.Context) (bool, error) {
			var ok bool
			err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok))
			return ok, err
		}
		ready, err := waitReady(tabCtx, check, sel.Limits.ReadyAttempts, sel.Limits.ReadyDelay())
		if err != nil {
			return nil, err
		}
		if !ready {
			l.logger.Warn("page not ready after polling, snapshotting anyway",
				"platform", string(adapter.Platform()),
				"attempts", sel.Limits.ReadyAttempts)
		}
	}

	var markup string
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(stampScript, nil),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	l.logger.Debug("page loaded", "url", rawURL, "bytes", len(markup), "duration_ms", time.Since(start).Milliseconds())
	return dom.Parse(rawURL, markup)
}

// waitReady polls check up to attempts times, pausing delay between polls.
// Zero attempts means a single check. It reports whether check ever
// succeeded; evaluation errors count as not ready.
func waitReady(ctx context.Context, check func(context.Context) (bool, error), attempts int, delay time.Duration) (bool, error) {
	attempts = max(attempts, 1)
	for i := 0; i < attempts; i++ {
		if ok, err := check(ctx); err == nil && ok {
			return true, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
	}
	return false, nil
}

func readyScript(selectors []string) (string, error) {
	list, err := json.MarshalString(selectors)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(%s).some(s => { try { return document.querySelector(s) !== null } catch (e) { return false } })`, list), nil
}

// stampScript records what only the live page knows: which element has
// focus and which editable candidates are not rendered.
var stampScript = fmt.Sprintf(`(() => {
  document.querySelectorAll('[%[1]s]').forEach(el => el.removeAttribute('%[1]s'));
  document.querySelectorAll('[%[2]s]').forEach(el => el.removeAttribute('%[2]s'));
  const active = document.activeElement;
  if (active && active !== document.body) active.setAttribute('%[1]s', '');
  document.querySelectorAll('textarea, input, [contenteditable], [role="textbox"]').forEach(el => {
    const r = el.getBoundingClientRect();
    const cs = getComputedStyle(el);
    if (r.width === 0 || r.height === 0 || cs.display === 'none' || cs.visibility === 'hidden') {
      el.setAttribute('%[2]s', '');
    }
  });
  return true;
})()`, dom.AttrFocused, dom.AttrHidden)
