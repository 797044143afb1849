package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"replykit/internal/domain"
)

// statusError carries the HTTP status a provider SDK reported.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d: %v", e.status, e.err) }
func (e *statusError) Unwrap() error { return e.err }

// classify maps a backend failure onto a ProviderError kind. Errors that are
// already ProviderErrors pass through.
func classify(err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &domain.ProviderError{Kind: kindOf(err), Err: err}
}

func kindOf(err error) domain.ProviderErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ProviderTimeout
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.status == http.StatusUnauthorized, se.status == http.StatusForbidden:
			return domain.ProviderKeyInvalid
		case se.status == http.StatusTooManyRequests:
			return domain.ProviderRateLimited
		case se.status == http.StatusRequestTimeout, se.status == http.StatusGatewayTimeout:
			return domain.ProviderTimeout
		case se.status > 0:
			return domain.ProviderGeneric
		}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return domain.ProviderTimeout
		}
		return domain.ProviderNetwork
	}

	switch {
	case isRateLimitError(err):
		return domain.ProviderRateLimited
	case containsAny(err, "invalid api key", "incorrect api key", "api key not valid", "unauthorized", "permission denied"):
		return domain.ProviderKeyInvalid
	case containsAny(err, "timeout", "deadline exceeded"):
		return domain.ProviderTimeout
	case containsAny(err, "connection refused", "no such host", "connection reset", "dial tcp", "network is unreachable"):
		return domain.ProviderNetwork
	}
	return domain.ProviderGeneric
}

func isRateLimitError(err error) bool {
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusTooManyRequests {
		return true
	}
	return containsAny(err, "429", "rate limit", "too many requests", "resource_exhausted")
}

func isServerError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500
	}
	return containsAny(err, "internal server error", "server_error", "service unavailable")
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func keyMissing(provider string) error {
	return &domain.ProviderError{
		Kind: domain.ProviderKeyMissing,
		Err:  fmt.Errorf("%s api key is not configured", provider),
	}
}
