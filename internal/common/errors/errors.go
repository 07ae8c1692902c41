// Package errors provides the standardized error taxonomy of the resolution loop.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUnderspecifiedQuery ErrorCode = "UNDERSPECIFIED_QUERY"
	ErrCodeUserAbort           ErrorCode = "USER_ABORT"

	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderRateLimited ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeInvalidLLMOutput    ErrorCode = "INVALID_LLM_OUTPUT"

	ErrCodeNoCorroboration ErrorCode = "NO_CORROBORATION"

	ErrCodeUnrecognizedIntent   ErrorCode = "UNRECOGNIZED_INTENT"
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a metadata entry and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUnderspecifiedQueryError is raised when clarification attempts are exhausted.
func NewUnderspecifiedQueryError(attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnderspecifiedQuery,
		Message:   "Company name or intent could not be resolved",
		Details:   fmt.Sprintf("clarificationAttempts: %d", attempts),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserAbortError marks a user-initiated stop. It is not a failure.
func NewUserAbortError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUserAbort,
		Message:   "User ended the session",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderUnavailableError wraps a failed external capability call.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   fmt.Sprintf("Provider '%s' unavailable", provider),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderTimeoutError wraps a provider call that exceeded its deadline.
func NewProviderTimeoutError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   fmt.Sprintf("Provider '%s' timeout", provider),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderRateLimitedError is returned when a provider keeps answering 429.
func NewProviderRateLimitedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderRateLimited,
		Message:   fmt.Sprintf("Provider '%s' rate limited", provider),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidLLMOutputError reports structured output that failed validation.
func NewInvalidLLMOutputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLLMOutput,
		Message:   "Language model returned malformed structured output",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoCorroborationError reports that neither search provider produced usable results.
func NewNoCorroborationError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoCorroboration,
		Message:   "No search provider corroborated an answer",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnrecognizedIntentError signals a classifier/router contract mismatch.
func NewUnrecognizedIntentError(intent string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnrecognizedIntent,
		Message:   "Router received an unrecognized intent",
		Details:   fmt.Sprintf("intent: %q", intent),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationInvalidError reports invalid startup configuration.
func NewConfigurationInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns how many times a provider call may be retried in place.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderUnavailable, ErrCodeProviderRateLimited:
		return 2
	case ErrCodeProviderTimeout:
		return 1
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsRecoverable reports whether the loop should convert the error into an
// empty or not-found result instead of aborting the resolution.
func IsRecoverable(code ErrorCode) bool {
	switch code {
	case ErrCodeUnrecognizedIntent, ErrCodeConfigurationInvalid:
		return false
	}
	return true
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "USER"):
		return "USER"
	case strings.Contains(codeStr, "CORROBORATION"):
		return "VERIFICATION"
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "CONFIGURATION"):
		return "INTERNAL"
	default:
		return "OTHER"
	}
}
