package usecases

import (
	"context"
	"fmt"
	"strings"

	"replykit/internal/domain"
)

// RewriteDraftUseCase rewrites the user's draft in a tone.
type RewriteDraftUseCase struct {
	ai ReplyGenerator
}

// NewRewriteDraftUseCase creates a new RewriteDraftUseCase.
func NewRewriteDraftUseCase(ai ReplyGenerator) *RewriteDraftUseCase {
	return &RewriteDraftUseCase{ai: ai}
}

// Execute rewrites draft. thread may be nil when the page could not be
// read; the rewrite then goes without context.
func (uc *RewriteDraftUseCase) Execute(ctx context.Context, draft string, thread *domain.ThreadContext, tone, customTone string) (string, error) {
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", fmt.Errorf("%w: draft is empty", domain.ErrValidation)
	}
	if tone == "" {
		tone = domain.DefaultTone
	}
	if !domain.KnownTone(tone) {
		return "", fmt.Errorf("%w: unknown tone %q", domain.ErrValidation, tone)
	}
	if thread != nil && ValidateContext(thread) != nil {
		thread = nil
	}

	out, err := uc.ai.RewriteDraft(ctx, draft, thread, domain.ToneDescription(tone, customTone))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &domain.ProviderError{Kind: domain.ProviderGeneric, Err: fmt.Errorf("empty rewrite")}
	}
	return out, nil
}
