package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"replykit/internal/adapters/cache"
	"replykit/internal/adapters/dom"
	"replykit/internal/adapters/platform"
	"replykit/internal/domain"
	"replykit/internal/usecases"
	"replykit/test/fixtures"
)

// MockGenerator is a mock implementation of ReplyGenerator.
type MockGenerator struct {
	mu         sync.Mutex
	replies    domain.Replies
	rewrite    string
	err        error
	calls      int
	lastTone   string
	lastThread *domain.ThreadContext
	lastDraft  string
}

func (m *MockGenerator) GenerateReplies(_ context.Context, thread *domain.ThreadContext, tone string) (domain.Replies, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTone = tone
	m.lastThread = thread
	if m.err != nil {
		return domain.Replies{}, m.err
	}
	return m.replies, nil
}

func (m *MockGenerator) RewriteDraft(_ context.Context, draft string, thread *domain.ThreadContext, tone string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTone = tone
	m.lastThread = thread
	m.lastDraft = draft
	if m.err != nil {
		return "", m.err
	}
	return m.rewrite, nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func threeReplies() domain.Replies {
	return domain.Replies{
		Suggestions: []string{"Nice post!", "Thanks for sharing.", "Could you say more?"},
		Summary:     "A short test thread.",
	}
}

func parse(t *testing.T, url, markup string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(url, markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func registry() *platform.Registry {
	return platform.Default(platform.DefaultSelectors())
}

// ExtractThreadUseCase tests

func TestExtractThreadUseCase_Execute_Success(t *testing.T) {
	// Arrange
	uc := usecases.NewExtractThreadUseCase(registry())
	doc := parse(t, fixtures.RedditURL, fixtures.GenerateRedditThread())

	// Act
	tc, err := uc.Execute(context.Background(), doc)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.Platform != domain.PlatformReddit || tc.PostTitle == "" {
		t.Errorf("context = %+v", tc)
	}
}

func TestExtractThreadUseCase_Execute_UnsupportedPlatform(t *testing.T) {
	uc := usecases.NewExtractThreadUseCase(registry())

	_, err := uc.Execute(context.Background(), parse(t, "https://example.com/thread/1", "<html></html>"))

	if !errors.Is(err, domain.ErrPlatformNotSupported) {
		t.Errorf("err = %v, want ErrPlatformNotSupported", err)
	}
}

func TestExtractThreadUseCase_Execute_NothingFound(t *testing.T) {
	uc := usecases.NewExtractThreadUseCase(registry())

	_, err := uc.Execute(context.Background(), parse(t, fixtures.TwitterURL, fixtures.GenerateTwitterNoText()))

	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestValidateContext(t *testing.T) {
	comment := []domain.Comment{{ID: "c1", Author: "a", Text: "hi"}}

	tests := []struct {
		name  string
		tc    *domain.ThreadContext
		valid bool
	}{
		{"nil", nil, false},
		{"empty url with content", &domain.ThreadContext{Platform: domain.PlatformReddit, PostTitle: "T", PostBody: "B", Comments: comment}, false},
		{"url without content", &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL}, false},
		{"unknown platform", &domain.ThreadContext{Platform: "myspace", URL: fixtures.RedditURL, PostTitle: "T"}, false},
		{"title only", &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}, true},
		{"comments only", &domain.ThreadContext{Platform: domain.PlatformTwitter, URL: fixtures.TwitterURL, Comments: comment}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := usecases.ValidateContext(tt.tc)
			if (err == nil) != tt.valid {
				t.Errorf("ValidateContext() = %v, want valid=%v", err, tt.valid)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidContext) {
				t.Errorf("err = %v, want ErrInvalidContext", err)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tc := &domain.ThreadContext{
		Platform:  domain.PlatformReddit,
		PostTitle: strings.Repeat("t", 80),
		PostBody:  "body",
		Comments:  []domain.Comment{{ID: "1"}, {ID: "2"}},
	}

	got := usecases.Summarize(tc)

	if !strings.Contains(got, "[reddit]") || !strings.Contains(got, "body=4 chars") || !strings.Contains(got, "comments=2") {
		t.Errorf("Summarize() = %q", got)
	}
	if strings.Contains(got, strings.Repeat("t", 51)) {
		t.Errorf("title not shortened: %q", got)
	}
}

// AnalyzeThreadUseCase tests

func newAnalyzer(t *testing.T, gen *MockGenerator, opts cache.Options) (*usecases.AnalyzeThreadUseCase, *cache.Store) {
	t.Helper()
	store := cache.NewStore(cache.NewMemoryKV(), opts)
	return usecases.NewAnalyzeThreadUseCase(store, gen), store
}

func TestAnalyzeThreadUseCase_EndToEnd_SecondRequestServedFromCache(t *testing.T) {
	// Arrange: a reddit post with a title, no body and one comment
	ctx := context.Background()
	url := "https://www.reddit.com/r/test/comments/abc123/test_post"
	markup := `<html><body>
<shreddit-post post-title="Test Post"></shreddit-post>
<shreddit-comment thingid="t1_1" depth="0" author="commenter"><div slot="comment">First!</div></shreddit-comment>
</body></html>`
	extract := usecases.NewExtractThreadUseCase(registry())
	gen := &MockGenerator{replies: threeReplies()}
	analyze, store := newAnalyzer(t, gen, cache.Options{})

	// Act
	thread, err := extract.Execute(ctx, parse(t, url, markup))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	first, err := analyze.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "friendly"})
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := analyze.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "friendly"})
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}

	// Assert
	if thread.PostTitle != "Test Post" || thread.PostBody != "" || len(thread.Comments) != 1 {
		t.Fatalf("thread = %+v", thread)
	}
	if first.FromCache {
		t.Error("first result should not come from cache")
	}
	if !second.FromCache {
		t.Error("second result should come from cache")
	}
	if gen.Calls() != 1 {
		t.Errorf("provider called %d times, want 1", gen.Calls())
	}
	if len(second.Suggestions) != 3 || second.Suggestions[0] != first.Suggestions[0] {
		t.Errorf("cached suggestions = %+v, want %+v", second.Suggestions, first.Suggestions)
	}
	entry, _ := store.Get(ctx, cache.GenerateCacheKey(url, "friendly"))
	if entry == nil {
		t.Fatal("result not stored under GenerateCacheKey(url, friendly)")
	}
	if entry.ThreadSummary != "A short test thread." {
		t.Errorf("stored summary = %q", entry.ThreadSummary)
	}
}

func TestAnalyzeThreadUseCase_ForceRefresh_SkipsCache(t *testing.T) {
	// Arrange
	ctx := context.Background()
	gen := &MockGenerator{replies: threeReplies()}
	uc, _ := newAnalyzer(t, gen, cache.Options{})
	thread := &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}

	// Act
	_, _ = uc.Execute(ctx, thread, usecases.AnalyzeRequest{})
	result, err := uc.Execute(ctx, thread, usecases.AnalyzeRequest{ForceRefresh: true})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FromCache {
		t.Error("forced refresh returned a cached result")
	}
	if gen.Calls() != 2 {
		t.Errorf("provider called %d times, want 2", gen.Calls())
	}
}

func TestAnalyzeThreadUseCase_TonesAreCachedSeparately(t *testing.T) {
	// Arrange
	ctx := context.Background()
	gen := &MockGenerator{replies: threeReplies()}
	uc, _ := newAnalyzer(t, gen, cache.Options{})
	thread := &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}

	// Act
	_, _ = uc.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "friendly"})
	_, _ = uc.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "witty"})
	_, _ = uc.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "custom", CustomTone: "like a pirate"})
	custom, _ := uc.Execute(ctx, thread, usecases.AnalyzeRequest{Tone: "custom", CustomTone: "Like a pirate "})

	// Assert
	if gen.Calls() != 3 {
		t.Errorf("provider called %d times, want 3", gen.Calls())
	}
	if !custom.FromCache {
		t.Error("same custom text should hit the cache")
	}
	if gen.lastTone != "like a pirate" {
		t.Errorf("provider tone = %q, want the custom text", gen.lastTone)
	}
}

func TestAnalyzeThreadUseCase_RejectedCacheWrite_StillReturnsResult(t *testing.T) {
	// Arrange
	ctx := context.Background()
	gen := &MockGenerator{replies: threeReplies()}
	uc, store := newAnalyzer(t, gen, cache.Options{EntryMaxBytes: 10})
	thread := &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}

	// Act
	result, err := uc.Execute(ctx, thread, usecases.AnalyzeRequest{})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Suggestions) != 3 {
		t.Errorf("got %d suggestions, want 3", len(result.Suggestions))
	}
	stats, _ := store.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("cache has %d entries, want 0", stats.Entries)
	}
}

func TestAnalyzeThreadUseCase_ProviderErrorPropagatesUnchanged(t *testing.T) {
	// Arrange
	providerErr := &domain.ProviderError{Kind: domain.ProviderRateLimited}
	gen := &MockGenerator{err: providerErr}
	uc, _ := newAnalyzer(t, gen, cache.Options{})
	thread := &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}

	// Act
	_, err := uc.Execute(context.Background(), thread, usecases.AnalyzeRequest{})

	// Assert
	if err != providerErr {
		t.Errorf("err = %v, want the provider error itself", err)
	}
}

func TestAnalyzeThreadUseCase_RejectsInvalidInput(t *testing.T) {
	gen := &MockGenerator{replies: threeReplies()}
	uc, _ := newAnalyzer(t, gen, cache.Options{})

	_, err := uc.Execute(context.Background(), &domain.ThreadContext{Platform: domain.PlatformReddit, PostTitle: "T"}, usecases.AnalyzeRequest{})
	if !errors.Is(err, domain.ErrInvalidContext) {
		t.Errorf("err = %v, want ErrInvalidContext", err)
	}

	thread := &domain.ThreadContext{Platform: domain.PlatformReddit, URL: fixtures.RedditURL, PostTitle: "T"}
	_, err = uc.Execute(context.Background(), thread, usecases.AnalyzeRequest{Tone: "sarcastic"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if gen.Calls() != 0 {
		t.Errorf("provider called %d times, want 0", gen.Calls())
	}
}

// RewriteDraftUseCase tests

func TestRewriteDraftUseCase_Execute(t *testing.T) {
	// Arrange
	gen := &MockGenerator{rewrite: "  Polished reply.  "}
	uc := usecases.NewRewriteDraftUseCase(gen)

	// Act
	out, err := uc.Execute(context.Background(), " rough draft ", nil, "professional", "")

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Polished reply." {
		t.Errorf("out = %q", out)
	}
	if gen.lastDraft != "rough draft" || gen.lastThread != nil {
		t.Errorf("provider got draft %q thread %v", gen.lastDraft, gen.lastThread)
	}
	if gen.lastTone != domain.ToneDescription("professional", "") {
		t.Errorf("tone = %q", gen.lastTone)
	}
}

func TestRewriteDraftUseCase_EmptyDraft_ValidationError(t *testing.T) {
	gen := &MockGenerator{rewrite: "x"}
	uc := usecases.NewRewriteDraftUseCase(gen)

	_, err := uc.Execute(context.Background(), "   ", nil, "", "")

	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if gen.Calls() != 0 {
		t.Error("provider should not be called")
	}
}

func TestRewriteDraftUseCase_EmptyRewrite_ProviderError(t *testing.T) {
	uc := usecases.NewRewriteDraftUseCase(&MockGenerator{rewrite: " "})

	_, err := uc.Execute(context.Background(), "draft", nil, "", "")

	if kind, ok := domain.ProviderKind(err); !ok || kind != domain.ProviderGeneric {
		t.Errorf("err = %v, want generic provider error", err)
	}
}
