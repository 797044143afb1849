package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIBackend calls the Responses API with a strict JSON schema.
type OpenAIBackend struct {
	client  openai.Client
	model   string
	backoff backoff
}

type backoff struct {
	attempts  int
	rateLimit []time.Duration
	server    []time.Duration
}

var defaultBackoff = backoff{
	attempts:  3,
	rateLimit: []time.Duration{2 * time.Second, 5 * time.Second},
	server:    []time.Duration{time.Second, 3 * time.Second},
}

// NewOpenAIBackend fails with key-missing when apiKey is empty.
func NewOpenAIBackend(apiKey, model string, opts ...option.RequestOption) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, keyMissing(ProviderOpenAI)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAIBackend{
		client:  openai.NewClient(opts...),
		model:   model,
		backoff: defaultBackoff,
	}, nil
}

func (b *OpenAIBackend) Name() string { return ProviderOpenAI }

func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   req.SchemaName,
			Schema: req.Schema,
			Strict: openai.Bool(true),
			Type:   "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:        b.model,
		Instructions: openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := b.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

func (b *OpenAIBackend) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < b.backoff.attempts; attempt++ {
		resp, err := b.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		err = withOpenAIStatus(err)
		lastErr = err

		var wait time.Duration
		switch {
		case isRateLimitError(err) && attempt < len(b.backoff.rateLimit):
			wait = b.backoff.rateLimit[attempt]
		case isServerError(err) && attempt < len(b.backoff.server):
			wait = b.backoff.server[attempt]
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", b.backoff.attempts, lastErr)
}

func withOpenAIStatus(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &statusError{status: apiErr.StatusCode, err: err}
	}
	return err
}
