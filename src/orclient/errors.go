package orclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common error variables
var (
	// ErrNoBaseURL indicates the service endpoint is missing
	ErrNoBaseURL = errors.New("base URL is required")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates rate limiting
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceTransport is returned once every attempt to reach the
	// language model service has failed.
	ErrServiceTransport = errors.New("language model service transport failure")
)

// ErrorResponse represents a standard error response from the API
// This matches the OpenAI/OpenRouter error format: {"error":{"message":"...","code":"..."}}
type ErrorResponse struct {
	Error struct {
		Message string                 `json:"message"`
		Type    string                 `json:"type"`
		Code    json.RawMessage        `json:"code"`
		Param   string                 `json:"param"`
		Details map[string]interface{} `json:"metadata"`
	} `json:"error"`
}

// APIError represents an error response from the chat completions API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Code       string
	Param      string
	Details    map[string]interface{}
	RequestID  string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error is retryable.
func (e *APIError) IsRetryable() bool {
	// 5xx errors are generally retryable
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return true
	}

	// Rate limit errors are retryable after a delay
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}

	switch e.Code {
	case "timeout", "connection_error", "server_error":
		return true
	}

	return false
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key"
}

// TimeoutError represents a timeout error with context.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s timed out after %v: %v", e.Operation, e.Duration, e.Cause)
	}
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is implements error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// TransportError wraps a network level failure such as a refused connection.
type TransportError struct {
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	return false
}

// GetRetryDelay returns the delay before the given attempt (1-based) is retried.
// Rate limit errors carrying a Retry-After value use it, everything else
// backs off exponentially from base, capped at one minute.
func GetRetryDelay(err error, attempt int, base time.Duration) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsRateLimit() && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base * time.Duration(1<<uint(attempt-1))
	maxDelay := time.Minute
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	return delay
}

// errorCode normalizes the code field, which some providers send as a number.
func errorCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
