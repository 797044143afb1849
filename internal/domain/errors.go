package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPlatformNotSupported is returned when no adapter handles the URL.
	ErrPlatformNotSupported = errors.New("platform not supported")

	// ErrExtractionFailed is returned when the adapter found nothing usable.
	ErrExtractionFailed = errors.New("could not extract thread content")

	// ErrInvalidContext is returned when an extracted context fails validation.
	ErrInvalidContext = errors.New("extracted thread context is invalid")

	// ErrNoInputField is returned when no reply box can be found.
	ErrNoInputField = errors.New("no reply input field found")

	// ErrInsertionFailed is returned when writing into the input failed and
	// the previous text had to be restored.
	ErrInsertionFailed = errors.New("text insertion failed")

	// ErrCacheWriteRejected is returned when an entry exceeds the size cap.
	ErrCacheWriteRejected = errors.New("cache entry rejected")

	// ErrValidation is returned for malformed requests.
	ErrValidation = errors.New("invalid request")

	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBrowserUnavailable is returned when a page must be loaded but no
	// browser is configured.
	ErrBrowserUnavailable = errors.New("browser loading is disabled")
)

// ProviderErrorKind is the closed set of AI provider failure categories.
type ProviderErrorKind string

const (
	ProviderKeyMissing  ProviderErrorKind = "key-missing"
	ProviderKeyInvalid  ProviderErrorKind = "key-invalid"
	ProviderRateLimited ProviderErrorKind = "rate-limited"
	ProviderTimeout     ProviderErrorKind = "timeout"
	ProviderNetwork     ProviderErrorKind = "network"
	ProviderGeneric     ProviderErrorKind = "generic"
)

// ProviderError is an AI provider failure. The core propagates it unchanged.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai provider: %s", e.Kind)
	}
	return fmt.Sprintf("ai provider: %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ProviderKind returns the kind of a ProviderError in err's chain, and false
// when there is none.
func ProviderKind(err error) (ProviderErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
