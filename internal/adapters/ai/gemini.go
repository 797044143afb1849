package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"replykit/pkg/json"
)

// GeminiBackend calls GenerateContent with a JSON response MIME type. The
// schema travels in the instructions.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend fails with key-missing when apiKey is empty.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, keyMissing(ProviderGemini)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) Name() string { return ProviderGemini }

func (b *GeminiBackend) Complete(ctx context.Context, req Request) (string, error) {
	instructions := req.Instructions
	if req.Schema != nil {
		schema, err := json.MarshalString(req.Schema)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		instructions += "\n\nRespond with a single JSON object matching this schema:\n" + schema
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Input), config)
	if err != nil {
		return "", withGeminiStatus(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			out.WriteString(part.Text)
		}
	}
	return out.String(), nil
}

func withGeminiStatus(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{status: apiErr.Code, err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &statusError{status: apiErrPtr.Code, err: err}
	}
	return err
}
