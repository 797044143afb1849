package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"replykit/internal/domain"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// friendlyError maps err to an HTTP status, a stable kind and a neutral,
// non-technical message.
func friendlyError(err error) (int, ErrorDetail) {
	if kind, ok := domain.ProviderKind(err); ok {
		return providerError(kind)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, ErrorDetail{"validation", "Something in that request doesn't look right. Please check it and try again."}
	case errors.Is(err, domain.ErrPlatformNotSupported):
		return fiber.StatusUnprocessableEntity, ErrorDetail{"platform-not-supported", "This page isn't supported yet. Open a Reddit, X or Facebook post and try again."}
	case errors.Is(err, domain.ErrExtractionFailed):
		return fiber.StatusUnprocessableEntity, ErrorDetail{"extraction-failed", "We couldn't read this thread. Try scrolling so the post is visible, then try again."}
	case errors.Is(err, domain.ErrInvalidContext):
		return fiber.StatusUnprocessableEntity, ErrorDetail{"invalid-context", "This thread didn't have enough content to work with."}
	case errors.Is(err, domain.ErrNoInputField):
		return fiber.StatusNotFound, ErrorDetail{"no-input-field", "Click into a reply box first, then try again."}
	case errors.Is(err, domain.ErrInsertionFailed):
		return fiber.StatusInternalServerError, ErrorDetail{"insertion-failed", "We couldn't place the text. Your previous draft was kept."}
	case errors.Is(err, domain.ErrCacheWriteRejected):
		return fiber.StatusRequestEntityTooLarge, ErrorDetail{"cache-write-rejected", "That result was too large to save."}
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests, ErrorDetail{"rate-limited", "Too many requests. Please wait a moment and try again."}
	case errors.Is(err, domain.ErrBrowserUnavailable):
		return fiber.StatusServiceUnavailable, ErrorDetail{"browser-unavailable", "Page loading is turned off here. Send the page HTML along with the request."}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, ErrorDetail{"timeout", "That took too long. Please try again in a moment."}
	default:
		return fiber.StatusInternalServerError, ErrorDetail{"internal", "Something went wrong on our side. Please try again in a moment."}
	}
}

func providerError(kind domain.ProviderErrorKind) (int, ErrorDetail) {
	d := ErrorDetail{Kind: string(kind)}
	switch kind {
	case domain.ProviderKeyMissing:
		d.Message = "No AI provider key is configured yet. Add one in the settings."
		return fiber.StatusServiceUnavailable, d
	case domain.ProviderKeyInvalid:
		d.Message = "The AI provider rejected the configured key. Please check it in the settings."
		return fiber.StatusBadGateway, d
	case domain.ProviderRateLimited:
		d.Message = "The AI provider is busy right now. Please wait a minute and try again."
		return fiber.StatusTooManyRequests, d
	case domain.ProviderTimeout:
		d.Message = "The AI provider took too long to answer. Please try again."
		return fiber.StatusGatewayTimeout, d
	case domain.ProviderNetwork:
		d.Message = "We couldn't reach the AI provider. Check your connection and try again."
		return fiber.StatusBadGateway, d
	default:
		d.Kind = string(domain.ProviderGeneric)
		d.Message = "The AI provider couldn't produce suggestions this time. Please try again."
		return fiber.StatusBadGateway, d
	}
}

// respondError writes err as an ErrorBody.
func respondError(c *fiber.Ctx, err error) error {
	status, detail := friendlyError(err)
	return c.Status(status).JSON(ErrorBody{Error: detail})
}
