package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"replykit/internal/adapters/cache"
	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/config"
	"replykit/internal/domain"
	"replykit/internal/usecases"
	"replykit/pkg/log"
)

// AdapterSource finds and lists platform adapters.
type AdapterSource interface {
	Adapter(rawURL string) platform.Adapter
	All() []platform.Adapter
}

// PageLoader opens live pages. Insert runs fn against a snapshot whose
// edits are mirrored into the page and returns the resulting markup.
type PageLoader interface {
	Load(ctx context.Context, rawURL string, adapter platform.Adapter) (*dom.Document, error)
	Insert(ctx context.Context, rawURL string, adapter platform.Adapter, fn func(doc *dom.Document) error) (string, error)
}

// CacheAdmin exposes the cache maintenance operations.
type CacheAdmin interface {
	Clear(ctx context.Context) error
	ClearForURL(ctx context.Context, rawURL string) (int, error)
	Stats(ctx context.Context) (cache.Stats, error)
}

// PreferenceStore holds user preferences.
type PreferenceStore interface {
	Get() config.Preferences
	Update(p config.Preferences) error
	Save() error
}

// Deps are the collaborators of Handlers. Loader may be nil, in which case
// every page-bound request must carry its HTML.
type Deps struct {
	Adapters    AdapterSource
	Extract     *usecases.ExtractThreadUseCase
	Draft       *usecases.GetDraftUseCase
	Insert      *usecases.InsertTextUseCase
	Analyze     *usecases.AnalyzeThreadUseCase
	Rewrite     *usecases.RewriteDraftUseCase
	Loader      PageLoader
	Cache       CacheAdmin
	Preferences PreferenceStore
}

// Handlers contains the HTTP handlers of the API.
type Handlers struct {
	adapters AdapterSource
	extract  *usecases.ExtractThreadUseCase
	draft    *usecases.GetDraftUseCase
	insert   *usecases.InsertTextUseCase
	analyze  *usecases.AnalyzeThreadUseCase
	rewrite  *usecases.RewriteDraftUseCase
	loader   PageLoader
	cache    CacheAdmin
	prefs    PreferenceStore
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		adapters: d.Adapters,
		extract:  d.Extract,
		draft:    d.Draft,
		insert:   d.Insert,
		analyze:  d.Analyze,
		rewrite:  d.Rewrite,
		loader:   d.Loader,
		cache:    d.Cache,
		prefs:    d.Preferences,
	}
}

func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrValidation, err)
	}
	return nil
}

// Health reports liveness.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Extract returns the thread context of a page.
func (h *Handlers) Extract(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req pageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	doc, err := h.document(ctx, req)
	if err != nil {
		log.GlobalWarnCtx(ctx, "page unavailable", "url", req.URL, "error", err)
		return respondError(c, err)
	}

	tc, err := h.extract.Execute(ctx, doc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"context": tc})
}

// Draft returns what the user has typed into the page's reply box.
func (h *Handlers) Draft(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req pageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	doc, err := h.document(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	tracker := usecases.NewFocusTracker(doc)
	defer tracker.Close()

	draft, err := h.draft.Execute(ctx, doc, tracker)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

type insertRequest struct {
	pageRequest
	Text           string `json:"text"`
	TargetSelector string `json:"targetSelector"`
}

type insertResponse struct {
	OK bool `json:"ok"`
	*usecases.InsertResult
	HTML string `json:"html,omitempty"`
}

// Insert places text into the page's reply box. With HTML in the request
// the edited markup is returned; otherwise the edit is made in the live
// page.
func (h *Handlers) Insert(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req insertRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return respondError(c, fmt.Errorf("%w: text is empty", domain.ErrValidation))
	}

	run := func(doc *dom.Document) (*usecases.InsertResult, error) {
		if err := focus(doc, req.FocusedSelector); err != nil {
			return nil, err
		}
		tracker := usecases.NewFocusTracker(doc)
		defer tracker.Close()
		return h.insert.Execute(ctx, doc, tracker, req.Text, req.TargetSelector)
	}

	if req.HTML == "" {
		return h.insertLive(c, req, run)
	}

	pageURL, err := ParsePageURL(req.URL)
	if err != nil {
		return respondError(c, err)
	}
	doc, err := dom.Parse(pageURL, req.HTML)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: unreadable html: %v", domain.ErrValidation, err))
	}
	result, err := run(doc)
	if err != nil {
		return respondError(c, err)
	}
	markup, err := doc.HTML()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(insertResponse{OK: true, InsertResult: result, HTML: markup})
}

func (h *Handlers) insertLive(c *fiber.Ctx, req insertRequest, run func(*dom.Document) (*usecases.InsertResult, error)) error {
	ctx := c.UserContext()

	pageURL, err := ParsePageURL(req.URL)
	if err != nil {
		return respondError(c, err)
	}
	if h.loader == nil {
		return respondError(c, domain.ErrBrowserUnavailable)
	}
	adapter := h.adapters.Adapter(pageURL)
	if adapter == nil {
		return respondError(c, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, pageURL))
	}

	var result *usecases.InsertResult
	_, err = h.loader.Insert(ctx, pageURL, adapter, func(doc *dom.Document) error {
		var err error
		result, err = run(doc)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(insertResponse{OK: true, InsertResult: result})
}

type analyzeRequest struct {
	pageRequest
	Tone       string `json:"tone"`
	CustomTone string `json:"customTone"`
	Refresh    bool   `json:"refresh"`
}

// Analyze extracts the thread and returns reply suggestions, from the
// cache when possible. Tone and TTL default to the stored preferences.
func (h *Handlers) Analyze(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req analyzeRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	doc, err := h.document(ctx, req.pageRequest)
	if err != nil {
		return respondError(c, err)
	}
	tc, err := h.extract.Execute(ctx, doc)
	if err != nil {
		return respondError(c, err)
	}

	prefs := h.prefs.Get()
	tone, custom := resolveTone(req.Tone, req.CustomTone, prefs)
	analysis, err := h.analyze.Execute(ctx, tc, usecases.AnalyzeRequest{
		Tone:         tone,
		CustomTone:   custom,
		ForceRefresh: req.Refresh,
		TTL:          prefs.CacheTTL(),
	})
	if err != nil {
		log.GlobalErrorCtx(ctx, "analysis failed", "url", tc.URL, "error", err)
		return respondError(c, err)
	}
	return c.JSON(analysis)
}

type rewriteRequest struct {
	pageRequest
	Draft      string `json:"draft"`
	Tone       string `json:"tone"`
	CustomTone string `json:"customTone"`
}

// Rewrite rewrites a draft. The thread, when the page can be read, is
// passed along as context; a page that cannot be read is not an error.
func (h *Handlers) Rewrite(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req rewriteRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if strings.TrimSpace(req.Draft) == "" {
		return respondError(c, fmt.Errorf("%w: draft is empty", domain.ErrValidation))
	}

	var thread *domain.ThreadContext
	if req.URL != "" {
		if doc, err := h.document(ctx, req.pageRequest); err == nil {
			thread, err = h.extract.Execute(ctx, doc)
			if err != nil {
				log.GlobalInfoCtx(ctx, "rewriting without thread context", "url", req.URL, "error", err)
			}
		} else {
			log.GlobalInfoCtx(ctx, "rewriting without thread context", "url", req.URL, "error", err)
		}
	}

	tone, custom := resolveTone(req.Tone, req.CustomTone, h.prefs.Get())
	text, err := h.rewrite.Execute(ctx, req.Draft, thread, tone, custom)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"text": text})
}

func resolveTone(tone, custom string, prefs config.Preferences) (string, string) {
	tone = strings.ToLower(strings.TrimSpace(tone))
	if tone == "" {
		return prefs.SelectedTone, prefs.CustomToneText
	}
	if tone == domain.ToneCustom && strings.TrimSpace(custom) == "" {
		custom = prefs.CustomToneText
	}
	return tone, custom
}

// ClearCache drops every cached analysis, or only those of ?url=.
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if raw := c.Query("url"); raw != "" {
		removed, err := h.cache.ClearForURL(ctx, raw)
		if err != nil {
			return respondError(c, err)
		}
		log.GlobalInfoCtx(ctx, "cache cleared for url", "url", raw, "removed", removed)
		return c.JSON(fiber.Map{"removed": removed})
	}

	if err := h.cache.Clear(ctx); err != nil {
		return respondError(c, err)
	}
	log.GlobalInfoCtx(ctx, "cache cleared")
	return c.JSON(fiber.Map{"ok": true})
}

// CacheStats reports cache occupancy.
func (h *Handlers) CacheStats(c *fiber.Ctx) error {
	stats, err := h.cache.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// Adapters lists the registered platforms and their current selectors.
func (h *Handlers) Adapters(c *fiber.Ctx) error {
	all := h.adapters.All()
	out := make([]AdapterInfo, 0, len(all))
	for _, a := range all {
		out = append(out, AdapterInfo{Platform: a.Platform(), Selectors: a.Selectors()})
	}
	return c.JSON(fiber.Map{"adapters": out, "tones": domain.PresetTones})
}

func (h *Handlers) GetPreferences(c *fiber.Ctx) error {
	return c.JSON(h.prefs.Get())
}

// PutPreferences validates, applies and saves preferences.
func (h *Handlers) PutPreferences(c *fiber.Ctx) error {
	ctx := c.UserContext()

	p := h.prefs.Get()
	if err := parseBody(c, &p); err != nil {
		return respondError(c, err)
	}
	if err := h.prefs.Update(p); err != nil {
		return respondError(c, err)
	}
	if err := h.prefs.Save(); err != nil {
		log.GlobalErrorCtx(ctx, "preferences not saved", "error", err)
		return respondError(c, err)
	}
	return c.JSON(h.prefs.Get())
}
