package ai_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"replykit/internal/adapters/ai"
	"replykit/internal/domain"
)

// MockBackend records requests and replays a canned response.
type MockBackend struct {
	mu       sync.Mutex
	requests []ai.Request
	output   string
	err      error
	wait     bool
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.output, m.err
}

func (m *MockBackend) Last() ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func sampleThread() *domain.ThreadContext {
	parent := "c1"
	return &domain.ThreadContext{
		Platform:   domain.PlatformReddit,
		URL:        "https://www.reddit.com/r/golang/comments/abc123/generics",
		PostTitle:  "Are generics worth it?",
		PostBody:   "I keep writing the same helper for three types.",
		PostAuthor: "gopher42",
		Comments: []domain.Comment{
			{ID: "c1", Author: "alice", Text: "Yes, for containers.", Depth: 0},
			{ID: "c2", Author: "bob", Text: "Agreed.", ParentID: &parent, Depth: 1},
		},
	}
}

func TestGenerateReplies_ParsesSuggestions(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: `{"summary":" A debate about generics. ","suggestions":["One"," Two ","Three","Four"]}`}
	client := ai.NewClient(backend, time.Second)

	// Act
	replies, err := client.GenerateReplies(context.Background(), sampleThread(), "warm")

	// Assert
	if err != nil {
		t.Fatalf("GenerateReplies() error = %v", err)
	}
	if len(replies.Suggestions) != 4 || replies.Suggestions[1] != "Two" {
		t.Errorf("suggestions = %q", replies.Suggestions)
	}
	if replies.Summary != "A debate about generics." {
		t.Errorf("summary = %q", replies.Summary)
	}
}

func TestGenerateReplies_PromptCarriesToneThreadAndAuthorGuard(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: `{"summary":"s","suggestions":["a","b","c"]}`}
	client := ai.NewClient(backend, time.Second)

	// Act
	if _, err := client.GenerateReplies(context.Background(), sampleThread(), "dry and formal"); err != nil {
		t.Fatalf("GenerateReplies() error = %v", err)
	}

	// Assert
	req := backend.Last()
	if !strings.Contains(req.Instructions, "dry and formal") {
		t.Errorf("instructions missing tone: %q", req.Instructions)
	}
	if !strings.Contains(req.Instructions, "The reader is NOT gopher42") {
		t.Errorf("instructions missing author guard: %q", req.Instructions)
	}
	if !strings.Contains(req.Input, "Title: Are generics worth it?") {
		t.Errorf("input missing title: %q", req.Input)
	}
	if !strings.Contains(req.Input, "  - bob: Agreed.") {
		t.Errorf("input should indent replies by depth: %q", req.Input)
	}
	if req.Schema == nil || req.SchemaName == "" {
		t.Error("request should carry a schema")
	}
}

func TestGenerateReplies_ClampsToFive(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: `{"summary":"s","suggestions":["1","2","3","4","5","6","7"]}`}
	client := ai.NewClient(backend, time.Second)

	// Act
	replies, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	// Assert
	if err != nil {
		t.Fatalf("GenerateReplies() error = %v", err)
	}
	if len(replies.Suggestions) != ai.MaxSuggestions {
		t.Errorf("got %d suggestions, want %d", len(replies.Suggestions), ai.MaxSuggestions)
	}
}

func TestGenerateReplies_TooFewIsGenericProviderError(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: `{"summary":"s","suggestions":["same","Same",""]}`}
	client := ai.NewClient(backend, time.Second)

	// Act
	_, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	// Assert
	kind, ok := domain.ProviderKind(err)
	if !ok || kind != domain.ProviderGeneric {
		t.Errorf("error = %v, want generic provider error", err)
	}
}

func TestGenerateReplies_ToleratesWrappedJSON(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: "Here you go:\n```json\n{\"summary\":\"s\",\"suggestions\":[\"a\",\"b\",\"c\"]}\n```"}
	client := ai.NewClient(backend, time.Second)

	// Act
	replies, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	// Assert
	if err != nil {
		t.Fatalf("GenerateReplies() error = %v", err)
	}
	if len(replies.Suggestions) != 3 {
		t.Errorf("suggestions = %q", replies.Suggestions)
	}
}

func TestGenerateReplies_GarbageOutputIsGeneric(t *testing.T) {
	backend := &MockBackend{output: "I cannot help with that."}
	client := ai.NewClient(backend, time.Second)

	_, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	if kind, _ := domain.ProviderKind(err); kind != domain.ProviderGeneric {
		t.Errorf("error = %v, want generic provider error", err)
	}
}

func TestGenerateReplies_TimeoutIsClassified(t *testing.T) {
	// Arrange
	backend := &MockBackend{wait: true}
	client := ai.NewClient(backend, 20*time.Millisecond)

	// Act
	_, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	// Assert
	if kind, _ := domain.ProviderKind(err); kind != domain.ProviderTimeout {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestGenerateReplies_BackendProviderErrorPassesThrough(t *testing.T) {
	backend := &MockBackend{err: &domain.ProviderError{Kind: domain.ProviderKeyInvalid}}
	client := ai.NewClient(backend, time.Second)

	_, err := client.GenerateReplies(context.Background(), sampleThread(), "")

	if kind, _ := domain.ProviderKind(err); kind != domain.ProviderKeyInvalid {
		t.Errorf("error = %v, want key-invalid", err)
	}
}

func TestGenerateReplies_NilThread(t *testing.T) {
	client := ai.NewClient(&MockBackend{}, time.Second)

	_, err := client.GenerateReplies(context.Background(), nil, "")

	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestRewriteDraft_ReturnsTrimmedText(t *testing.T) {
	// Arrange
	backend := &MockBackend{output: `{"text":"  Thanks, that helped a lot!  "}`}
	client := ai.NewClient(backend, time.Second)

	// Act
	text, err := client.RewriteDraft(context.Background(), "thx helped", sampleThread(), "grateful")

	// Assert
	if err != nil {
		t.Fatalf("RewriteDraft() error = %v", err)
	}
	if text != "Thanks, that helped a lot!" {
		t.Errorf("text = %q", text)
	}
	req := backend.Last()
	if !strings.Contains(req.Input, "Draft:\nthx helped") || !strings.Contains(req.Input, "Thread for context:") {
		t.Errorf("input = %q", req.Input)
	}
}

func TestRewriteDraft_WithoutThread(t *testing.T) {
	backend := &MockBackend{output: `{"text":"Hello there."}`}
	client := ai.NewClient(backend, time.Second)

	text, err := client.RewriteDraft(context.Background(), "hi", nil, "")

	if err != nil || text != "Hello there." {
		t.Fatalf("RewriteDraft() = %q, %v", text, err)
	}
	if req := backend.Last(); strings.Contains(req.Input, "Thread for context") || strings.Contains(req.Instructions, "NOT") {
		t.Errorf("request should not mention a thread: %+v", req)
	}
}

func TestRewriteDraft_EmptyDraft(t *testing.T) {
	backend := &MockBackend{}
	client := ai.NewClient(backend, time.Second)

	_, err := client.RewriteDraft(context.Background(), "   ", nil, "")

	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(backend.requests) != 0 {
		t.Error("backend should not be called for an empty draft")
	}
}

func TestNew_MissingKeys(t *testing.T) {
	tests := []struct {
		name     string
		provider string
	}{
		{name: "openai", provider: ai.ProviderOpenAI},
		{name: "default provider", provider: ""},
		{name: "gemini", provider: ai.ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ai.New(context.Background(), ai.Config{Provider: tt.provider})

			if kind, _ := domain.ProviderKind(err); kind != domain.ProviderKeyMissing {
				t.Errorf("error = %v, want key-missing", err)
			}
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := ai.New(context.Background(), ai.Config{Provider: "llama"})

	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestNew_OpenAIWithKey(t *testing.T) {
	client, err := ai.New(context.Background(), ai.Config{Provider: "OpenAI", OpenAIKey: "sk-test"})

	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Provider() != ai.ProviderOpenAI {
		t.Errorf("Provider() = %q", client.Provider())
	}
}

func TestUnavailable_ReportsStartupError(t *testing.T) {
	// Arrange
	_, startErr := ai.New(context.Background(), ai.Config{Provider: ai.ProviderGemini})
	client := ai.NewClient(ai.Unavailable(ai.ProviderGemini, startErr), time.Second)

	// Act
	_, err := client.GenerateReplies(context.Background(), &domain.ThreadContext{Platform: domain.PlatformReddit, URL: "https://reddit.com/r/x", PostTitle: "t"}, "friendly")

	// Assert
	if kind, _ := domain.ProviderKind(err); kind != domain.ProviderKeyMissing {
		t.Errorf("error = %v, want key-missing", err)
	}
	if client.Provider() != ai.ProviderGemini {
		t.Errorf("Provider() = %q", client.Provider())
	}
}
