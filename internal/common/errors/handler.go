// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	commonhttp "company-assistant/internal/common/http"
)

// ErrorHandler normalizes errors raised at a stage boundary and logs them once.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle converts err into a StandardError for the named provider and logs it.
// Recoverable errors are logged at warn level, fatal ones at error level.
func (h *ErrorHandler) Handle(provider string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := Normalize(provider, err)

	fields := map[string]interface{}{
		"provider":      provider,
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
	}
	if IsRecoverable(stdErr.Code) {
		h.logger.Warn("recovered provider error", fields)
	} else {
		h.logger.Error("unrecoverable error", fields)
	}
	return stdErr
}

// Normalize ensures we always have a StandardError.
func Normalize(provider string, err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	if isTimeout(err) {
		return NewProviderTimeoutError(provider, err)
	}
	var statusErr *commonhttp.StatusError
	if stderrors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return NewProviderRateLimitedError(provider, err)
		}
		stdErr := NewProviderUnavailableError(provider, err)
		stdErr.Retryable = statusErr.Retryable()
		return stdErr
	}
	if stderrors.Is(err, context.Canceled) {
		return &StandardError{
			Code:      ErrCodeProviderUnavailable,
			Message:   "Provider call cancelled",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
			cause:     err,
		}
	}
	return NewProviderUnavailableError(provider, err)
}

// RetryBudget is a commonhttp.RetryPolicy keyed on the normalized error code.
func RetryBudget(err error) int {
	stdErr := Normalize("", err)
	if !stdErr.Retryable || !IsRetryableErrorCode(stdErr.Code) {
		return 0
	}
	return GetRetryCount(stdErr.Code)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
