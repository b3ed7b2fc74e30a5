package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrorCategory classifies a provider failure for the caller. The pool runner
// records the category on the failed step; it never retries internally.
type ErrorCategory string

const (
	CategoryAuth      ErrorCategory = "authentication"
	CategoryRateLimit ErrorCategory = "rate_limit"
	CategoryMalformed ErrorCategory = "malformed_data"
	CategoryTimeout   ErrorCategory = "timeout"
	CategoryUnknown   ErrorCategory = "unknown"
)

// ProviderError wraps an error from a data provider with its category and an
// optional HTTP status code.
type ProviderError struct {
	Err        error
	Category   ErrorCategory
	StatusCode int
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps an error with an explicit category.
func NewProviderError(err error, category ErrorCategory) *ProviderError {
	return &ProviderError{Err: err, Category: category}
}

// FromHTTPStatus wraps an error with the category implied by an HTTP status code.
func FromHTTPStatus(err error, statusCode int) *ProviderError {
	return &ProviderError{Err: err, Category: CategoryForHTTPStatus(statusCode), StatusCode: statusCode}
}

// CategoryForHTTPStatus maps an HTTP status code to an error category.
func CategoryForHTTPStatus(statusCode int) ErrorCategory {
	switch statusCode {
	case 401, 403:
		return CategoryAuth
	case 429:
		return CategoryRateLimit
	case 408, 504:
		return CategoryTimeout
	case 422:
		return CategoryMalformed
	default:
		return CategoryUnknown
	}
}

// Classify returns the category of an error. Explicit ProviderError categories
// win; otherwise network timeouts and common transient patterns map to
// timeout, JSON decode failures to malformed_data, and the rest to unknown.
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "tls handshake timeout"),
		strings.Contains(msg, "connection reset by peer"),
		strings.Contains(msg, "no such host"):
		return CategoryTimeout
	case strings.Contains(msg, "unexpected end of json"),
		strings.Contains(msg, "invalid character"),
		strings.Contains(msg, "cannot unmarshal"):
		return CategoryMalformed
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"):
		return CategoryAuth
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		return CategoryRateLimit
	}

	return CategoryUnknown
}

// IsCancellation reports whether the error chain terminates in context
// cancellation. Cancellation is propagated, never recorded as a provider failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
