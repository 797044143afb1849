// Package ai turns thread contexts into reply suggestions through an LLM
// provider. Provider specifics live behind Backend; Client owns prompting,
// response decoding and error classification.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"replykit/internal/domain"
	"replykit/pkg/json"
	"replykit/pkg/log"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"

	MinSuggestions = 3
	MaxSuggestions = 5
)

// Request is one structured completion call.
type Request struct {
	Instructions string
	Input        string
	SchemaName   string
	Schema       map[string]any
	MaxTokens    int
}

// Backend performs a single completion and returns the raw model text.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Timeout     time.Duration
}

// Client implements reply generation and draft rewriting over a Backend.
type Client struct {
	backend Backend
	timeout time.Duration
	logger  *log.Logger
}

// New builds the backend named by cfg.Provider. A missing API key is a
// ProviderError of kind key-missing.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		backend, err = NewOpenAIBackend(cfg.OpenAIKey, cfg.OpenAIModel)
	case ProviderGemini:
		backend, err = NewGeminiBackend(ctx, cfg.GeminiKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("%w: unknown ai provider %q", domain.ErrValidation, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewClient(backend, cfg.Timeout), nil
}

// NewClient wraps backend. A non-positive timeout uses DefaultTimeout.
func NewClient(backend Backend, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		backend: backend,
		timeout: timeout,
		logger:  log.Default().Named("ai." + backend.Name()),
	}
}

// Provider returns the backend name.
func (c *Client) Provider() string { return c.backend.Name() }

type repliesResponse struct {
	Summary     string   `json:"summary" jsonschema:"description=Two or three sentence neutral summary of the discussion"`
	Suggestions []string `json:"suggestions" jsonschema:"description=Between three and five distinct reply options"`
}

type rewriteResponse struct {
	Text string `json:"text" jsonschema:"description=The rewritten reply"`
}

var (
	repliesSchema = generateSchema[repliesResponse]()
	rewriteSchema = generateSchema[rewriteResponse]()
)

// GenerateReplies asks the provider for reply options to thread written in
// toneDescription.
func (c *Client) GenerateReplies(ctx context.Context, thread *domain.ThreadContext, toneDescription string) (domain.Replies, error) {
	if thread == nil {
		return domain.Replies{}, fmt.Errorf("%w: thread is required", domain.ErrValidation)
	}

	req := Request{
		Instructions: repliesInstructions(toneDescription, thread.PostAuthor),
		Input:        renderThread(thread),
		SchemaName:   "ReplySuggestions",
		Schema:       repliesSchema,
		MaxTokens:    1200,
	}

	var out repliesResponse
	if err := c.complete(ctx, req, &out); err != nil {
		return domain.Replies{}, err
	}

	suggestions := cleanSuggestions(out.Suggestions)
	if len(suggestions) < MinSuggestions {
		c.logger.WarnCtx(ctx, "provider returned too few suggestions", "count", len(suggestions))
		return domain.Replies{}, &domain.ProviderError{
			Kind: domain.ProviderGeneric,
			Err:  fmt.Errorf("got %d usable suggestions, need at least %d", len(suggestions), MinSuggestions),
		}
	}

	return domain.Replies{
		Suggestions: suggestions,
		Summary:     strings.TrimSpace(out.Summary),
	}, nil
}

// RewriteDraft rewrites draft in toneDescription. thread may be nil.
func (c *Client) RewriteDraft(ctx context.Context, draft string, thread *domain.ThreadContext, toneDescription string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", fmt.Errorf("%w: draft is empty", domain.ErrValidation)
	}

	author := ""
	if thread != nil {
		author = thread.PostAuthor
	}
	req := Request{
		Instructions: rewriteInstructions(toneDescription, author),
		Input:        renderRewrite(draft, thread),
		SchemaName:   "RewrittenReply",
		Schema:       rewriteSchema,
		MaxTokens:    600,
	}

	var out rewriteResponse
	if err := c.complete(ctx, req, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func (c *Client) complete(ctx context.Context, req Request, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.backend.Complete(ctx, req)
	if err != nil {
		classified := classify(err)
		c.logger.ErrorCtx(ctx, "provider call failed",
			"schema", req.SchemaName,
			"kind", string(classified.Kind),
			"error", err.Error())
		return classified
	}
	c.logger.DebugCtx(ctx, "provider call completed",
		"schema", req.SchemaName,
		"duration_ms", time.Since(start).Milliseconds())

	if err := decodeModelJSON(text, v); err != nil {
		return &domain.ProviderError{Kind: domain.ProviderGeneric, Err: fmt.Errorf("decode %s: %w", req.SchemaName, err)}
	}
	return nil
}

// cleanSuggestions trims, drops blanks and duplicates, and caps the list.
func cleanSuggestions(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	if err := json.UnmarshalString(s, v); err == nil {
		return nil
	}

	// Models sometimes wrap the object in prose or code fences.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return errors.New("no JSON object found in model output")
	}
	return json.UnmarshalString(s[start:end+1], v)
}

// unavailableBackend answers every request with the error that kept the
// real backend from starting.
type unavailableBackend struct {
	name string
	err  error
}

// Unavailable returns a Backend that always fails with err. It lets the
// service start without a provider key and report key-missing per request.
func Unavailable(name string, err error) Backend {
	return &unavailableBackend{name: name, err: err}
}

func (u *unavailableBackend) Name() string { return u.name }

func (u *unavailableBackend) Complete(context.Context, Request) (string, error) {
	return "", u.err
}
