package llmadapter

import (
	"fmt"
	"net/http"
)

// Error codes for provider failures
const (
	ErrCodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrCodeBadGateway         = "BAD_GATEWAY"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeConnectionReset    = "CONNECTION_RESET"
	ErrCodeConnectionRefused  = "CONNECTION_REFUSED"
	ErrCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrCodeInvalidModel       = "INVALID_MODEL"
	ErrCodeContentPolicy      = "CONTENT_POLICY_VIOLATION"
	ErrCodeUnknown            = "UNKNOWN"
)

// Error is a classified provider failure.
type Error struct {
	Code       string
	StatusCode int
	Message    string
	Provider   string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%s, status %d): %s", e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Provider, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrCodeRateLimit,
		ErrCodeInternalServer,
		ErrCodeBadGateway,
		ErrCodeServiceUnavailable,
		ErrCodeGatewayTimeout,
		ErrCodeTimeout,
		ErrCodeConnectionReset,
		ErrCodeConnectionRefused:
		return true
	default:
		return false
	}
}

// NewError classifies a failure from its HTTP status code.
func NewError(statusCode int, message, provider string, err error) *Error {
	return &Error{
		Code:       codeForStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
		Provider:   provider,
		Err:        err,
	}
}

func NewErrorWithCode(code, message, provider string, err error) *Error {
	return &Error{Code: code, Message: message, Provider: provider, Err: err}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusInternalServerError:
		return ErrCodeInternalServer
	case http.StatusBadGateway:
		return ErrCodeBadGateway
	case http.StatusServiceUnavailable:
		return ErrCodeServiceUnavailable
	case http.StatusGatewayTimeout:
		return ErrCodeGatewayTimeout
	default:
		return ErrCodeUnknown
	}
}
