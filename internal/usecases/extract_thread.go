package usecases

import (
	"context"
	"fmt"

	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/domain"
	"replykit/pkg/log"
)

// AdapterRegistry picks the adapter for a page URL.
type AdapterRegistry interface {
	Adapter(rawURL string) platform.Adapter
}

// ExtractThreadUseCase turns a page into a validated thread context.
type ExtractThreadUseCase struct {
	registry AdapterRegistry
}

// NewExtractThreadUseCase creates a new ExtractThreadUseCase.
func NewExtractThreadUseCase(registry AdapterRegistry) *ExtractThreadUseCase {
	return &ExtractThreadUseCase{registry: registry}
}

// Execute extracts the thread on doc. It fails with ErrPlatformNotSupported
// when no adapter handles the URL, ErrExtractionFailed when the adapter
// finds nothing, and ErrInvalidContext when the result fails validation.
func (uc *ExtractThreadUseCase) Execute(ctx context.Context, doc *dom.Document) (*domain.ThreadContext, error) {
	adapter := uc.registry.Adapter(doc.URL())
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotSupported, doc.URL())
	}

	tc := adapter.ExtractThreadContext(doc)
	if tc == nil {
		log.GlobalWarnCtx(ctx, "adapter found no thread", "platform", adapter.Platform(), "url", doc.URL())
		return nil, domain.ErrExtractionFailed
	}
	if err := ValidateContext(tc); err != nil {
		log.GlobalWarnCtx(ctx, "extracted context rejected", "platform", adapter.Platform(), "error", err)
		return nil, err
	}

	log.GlobalDebugCtx(ctx, "thread extracted", "summary", Summarize(tc))
	return tc, nil
}

// ValidateContext checks the invariants every context handed onward must
// hold: a known platform, a URL and some content.
func ValidateContext(tc *domain.ThreadContext) error {
	switch {
	case tc == nil:
		return domain.ErrInvalidContext
	case tc.URL == "":
		return fmt.Errorf("%w: empty url", domain.ErrInvalidContext)
	case !tc.Platform.Valid():
		return fmt.Errorf("%w: unknown platform %q", domain.ErrInvalidContext, tc.Platform)
	case !tc.HasContent():
		return fmt.Errorf("%w: no title, body or comments", domain.ErrInvalidContext)
	}
	return nil
}

// Summarize renders a one-line diagnostic description of tc.
func Summarize(tc *domain.ThreadContext) string {
	title := []rune(tc.PostTitle)
	if len(title) > 50 {
		title = append(title[:50], []rune("...")...)
	}
	return fmt.Sprintf("[%s] %q body=%d chars comments=%d", tc.Platform, string(title), len([]rune(tc.PostBody)), len(tc.Comments))
}
