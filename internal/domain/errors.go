package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory is the user-facing failure taxonomy of a generation request.
type ErrorCategory string

const (
	CategoryMissingInput          ErrorCategory = "missing_input"
	CategoryProviderNotConfigured ErrorCategory = "provider_not_configured"
	CategoryRateLimited           ErrorCategory = "rate_limited"
	CategoryUnauthorized          ErrorCategory = "unauthorized"
	CategoryUpstreamFailure       ErrorCategory = "upstream_failure"
	CategoryTimeout               ErrorCategory = "timeout"
	CategoryUnknown               ErrorCategory = "unknown"
)

// HTTPStatus maps a category to the status code returned by the generate endpoint.
func (c ErrorCategory) HTTPStatus() int {
	switch c {
	case CategoryMissingInput:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GenerationError is a terminal failure of one generation request.
type GenerationError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewGenerationError builds a GenerationError without an underlying cause.
func NewGenerationError(category ErrorCategory, message string) *GenerationError {
	return &GenerationError{Category: category, Message: message}
}

// WrapGenerationError attaches a category and message to an underlying cause.
func WrapGenerationError(category ErrorCategory, message string, err error) *GenerationError {
	return &GenerationError{Category: category, Message: message, Err: err}
}

// AsGenerationError extracts a GenerationError from an error chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) && genErr != nil {
		return genErr, true
	}
	return nil, false
}

var (
	ErrMissingInput          = NewGenerationError(CategoryMissingInput, "both productImage and userPhoto are required")
	ErrProviderNotConfigured = NewGenerationError(CategoryProviderNotConfigured, "provider api key is not configured")
	ErrNoImageProduced       = NewGenerationError(CategoryUpstreamFailure, "model produced no image")
	ErrPollTimeout           = NewGenerationError(CategoryTimeout, "timed out awaiting result")
)
