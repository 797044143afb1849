package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"replykit/internal/domain"
	"replykit/pkg/log"
)

// ReplyGenerator is the AI provider boundary.
type ReplyGenerator interface {
	GenerateReplies(ctx context.Context, thread *domain.ThreadContext, toneDescription string) (domain.Replies, error)
	RewriteDraft(ctx context.Context, draft string, thread *domain.ThreadContext, toneDescription string) (string, error)
}

// AnalysisCache stores analyses by (URL, tone).
type AnalysisCache interface {
	Key(url, tone string) string
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Save(ctx context.Context, entry *domain.CacheEntry) error
	NewEntry(url, tone string, suggestions []domain.Suggestion, summary string, ttl time.Duration) *domain.CacheEntry
}

// AnalyzeRequest selects the tone of an analysis.
type AnalyzeRequest struct {
	Tone         string
	CustomTone   string
	ForceRefresh bool
	// TTL overrides the cache default when positive.
	TTL time.Duration
}

// AnalyzeThreadUseCase returns reply suggestions for a thread, serving
// repeated requests for the same URL and tone from the cache.
type AnalyzeThreadUseCase struct {
	cache AnalysisCache
	ai    ReplyGenerator
}

// NewAnalyzeThreadUseCase creates a new AnalyzeThreadUseCase.
func NewAnalyzeThreadUseCase(cache AnalysisCache, ai ReplyGenerator) *AnalyzeThreadUseCase {
	return &AnalyzeThreadUseCase{cache: cache, ai: ai}
}

// Execute analyzes thread. Cache read errors fall through to the provider;
// a rejected cache write is logged and the fresh result still returned.
func (uc *AnalyzeThreadUseCase) Execute(ctx context.Context, thread *domain.ThreadContext, req AnalyzeRequest) (*domain.Analysis, error) {
	if err := ValidateContext(thread); err != nil {
		return nil, err
	}
	tone := req.Tone
	if tone == "" {
		tone = domain.DefaultTone
	}
	if !domain.KnownTone(tone) {
		return nil, fmt.Errorf("%w: unknown tone %q", domain.ErrValidation, tone)
	}

	cacheTone := domain.CacheTone(tone, req.CustomTone)
	key := uc.cache.Key(thread.URL, cacheTone)

	if !req.ForceRefresh {
		entry, err := uc.cache.Get(ctx, key)
		if err != nil {
			log.GlobalWarnCtx(ctx, "cache read failed", "key", key, "error", err)
		}
		if entry != nil {
			log.GlobalDebugCtx(ctx, "cache hit", "key", key)
			return &domain.Analysis{
				Suggestions: entry.Suggestions,
				Summary:     entry.ThreadSummary,
				FromCache:   true,
			}, nil
		}
	}

	log.GlobalDebugCtx(ctx, "cache miss, asking provider", "key", key, "tone", cacheTone)
	replies, err := uc.ai.GenerateReplies(ctx, thread, domain.ToneDescription(tone, req.CustomTone))
	if err != nil {
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0, len(replies.Suggestions))
	for _, text := range replies.Suggestions {
		suggestions = append(suggestions, domain.Suggestion{ID: uuid.NewString(), Text: text})
	}

	entry := uc.cache.NewEntry(thread.URL, cacheTone, suggestions, replies.Summary, req.TTL)
	if err := uc.cache.Save(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrCacheWriteRejected) {
			log.GlobalWarnCtx(ctx, "analysis not cached", "key", key, "error", err)
		} else {
			log.GlobalErrorCtx(ctx, "cache write failed", "key", key, "error", err)
		}
	}

	return &domain.Analysis{
		Suggestions: suggestions,
		Summary:     replies.Summary,
		FromCache:   false,
	}, nil
}
