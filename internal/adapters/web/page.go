package web

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/domain"
)

// ParsePageURL accepts absolute http(s) URLs only.
func ParsePageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q is not a page address", domain.ErrValidation, raw)
	}
	return u.String(), nil
}

// pageRequest is the part every page-bound request shares. HTML is the
// page snapshot; without it the page is loaded in the browser.
type pageRequest struct {
	URL             string `json:"url"`
	HTML            string `json:"html"`
	FocusedSelector string `json:"focusedSelector"`
}

// document builds the snapshot for req, from the supplied markup or the
// loader.
func (h *Handlers) document(ctx context.Context, req pageRequest) (*dom.Document, error) {
	pageURL, err := ParsePageURL(req.URL)
	if err != nil {
		return nil, err
	}

	var doc *dom.Document
	if req.HTML != "" {
		doc, err = dom.Parse(pageURL, req.HTML)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable html: %v", domain.ErrValidation, err)
		}
	} else {
		if h.loader == nil {
			return nil, domain.ErrBrowserUnavailable
		}
		adapter := h.adapters.Adapter(pageURL)
		if adapter == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, pageURL)
		}
		doc, err = h.loader.Load(ctx, pageURL, adapter)
		if err != nil {
			return nil, err
		}
	}

	if err := focus(doc, req.FocusedSelector); err != nil {
		return nil, err
	}
	return doc, nil
}

// focus moves focus to the element selected by sel, when given.
func focus(doc *dom.Document, sel string) error {
	if sel == "" {
		return nil
	}
	el := doc.Query(sel)
	if el == nil {
		return fmt.Errorf("%w: focusedSelector %q matches nothing", domain.ErrValidation, sel)
	}
	return doc.Focus(el)
}

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Platform  domain.Platform            `json:"platform"`
	Selectors platform.PlatformSelectors `json:"selectors"`
}
