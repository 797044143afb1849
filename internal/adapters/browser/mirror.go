package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"

	"replykit/internal/adapters/dom"
	"replykit/pkg/json"
)

// ErrElementNotFound is returned when a mutation's path does not resolve in
// the live page.
var ErrElementNotFound = errors.New("element not found in live page")

// LiveMirror replays snapshot mutations into a chromedp tab.
type LiveMirror struct {
	ctx context.Context
}

// NewLiveMirror returns a mirror bound to the tab context ctx.
func NewLiveMirror(ctx context.Context) *LiveMirror {
	return &LiveMirror{ctx: ctx}
}

// Apply implements dom.Mirror.
func (m *LiveMirror) Apply(mut dom.Mutation) error {
	script, err := mutationScript(mut)
	if err != nil {
		return err
	}
	var found bool
	if err := chromedp.Run(m.ctx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("mirror mutation: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrElementNotFound, mut.Path)
	}
	return nil
}

// Value setters go through the prototype so framework-managed inputs see
// the change.
const (
	setValueBody = `const proto = Object.getPrototypeOf(el);
  const desc = Object.getOwnPropertyDescriptor(proto, 'value');
  if (desc && desc.set) { desc.set.call(el, v); } else { el.value = v; }`

	setTextBody = `el.textContent = '';
  v.split('\n').forEach((line, i) => {
    if (i > 0) el.appendChild(document.createElement('br'));
    el.appendChild(document.createTextNode(line));
  });`

	insertTextBody = `el.focus();
  if (el.select) { el.select(); } else { document.execCommand('selectAll', false); }
  if (!document.execCommand('insertText', false, v)) {
    if ('value' in el) { el.value = v; } else { el.textContent = v; }
  }`

	focusBody = `el.focus();`

	dispatchBody = `el.dispatchEvent(new Event(v, { bubbles: true }));`
)

func mutationScript(mut dom.Mutation) (string, error) {
	var body string
	switch mut.Kind {
	case dom.MutationSetValue:
		body = setValueBody
	case dom.MutationSetText:
		body = setTextBody
	case dom.MutationInsertText:
		body = insertTextBody
	case dom.MutationFocus:
		body = focusBody
	case dom.MutationDispatch:
		body = dispatchBody
	default:
		return "", fmt.Errorf("unknown mutation kind %d", mut.Kind)
	}

	path, err := json.MarshalString(mut.Path)
	if err != nil {
		return "", err
	}
	value, err := json.MarshalString(mut.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((path, v) => {
  const el = document.querySelector(path);
  if (!el) return false;
  %s
  return true;
})(%s, %s)`, body, path, value), nil
}
