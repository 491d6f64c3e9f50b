package llmadapter

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var statusPattern = regexp.MustCompile(`(?i)(?:status(?: code)?|http|error|code)\s*:?\s*(\d{3})\b`)

// ErrorParser extracts structured error information from provider errors
type ErrorParser struct {
	provider string
}

func NewErrorParser(provider string) *ErrorParser {
	return &ErrorParser{provider: provider}
}

// ParseError classifies err, or returns nil when nothing recognizable is found.
func (p *ErrorParser) ParseError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if status := extractHTTPStatusCode(msg); status > 0 {
		return NewError(status, msg, p.provider, err)
	}
	if llmErr := p.matchProviderPatterns(lower, msg, err); llmErr != nil {
		return llmErr
	}
	return p.matchNetworkPatterns(lower, msg, err)
}

func extractHTTPStatusCode(msg string) int {
	m := statusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code < 400 || code >= 600 {
		return 0
	}
	return code
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func (p *ErrorParser) matchProviderPatterns(lower, msg string, err error) *Error {
	switch {
	case containsAny(lower, "insufficient_quota", "quota exceeded", "quota_exceeded"):
		return NewErrorWithCode(ErrCodeQuotaExceeded, msg, p.provider, err)
	case containsAny(lower, "rate limit", "rate_limit", "ratelimit", "too many requests", "throttl"):
		return NewError(http.StatusTooManyRequests, msg, p.provider, err)
	case containsAny(lower, "service unavailable", "temporarily unavailable", "overloaded", "try again later"):
		return NewError(http.StatusServiceUnavailable, msg, p.provider, err)
	case containsAny(lower, "unauthorized", "invalid api key", "invalid_api_key", "authentication"):
		return NewError(http.StatusUnauthorized, msg, p.provider, err)
	case containsAny(lower, "invalid model", "model not found", "model_not_found", "does not exist"):
		return NewErrorWithCode(ErrCodeInvalidModel, msg, p.provider, err)
	case containsAny(lower, "content policy", "content_filter", "safety"):
		return NewErrorWithCode(ErrCodeContentPolicy, msg, p.provider, err)
	}
	return nil
}

func (p *ErrorParser) matchNetworkPatterns(lower, msg string, err error) *Error {
	switch {
	case containsAny(lower, "timeout", "timed out", "deadline exceeded"):
		return NewErrorWithCode(ErrCodeTimeout, msg, p.provider, err)
	case strings.Contains(lower, "connection reset"):
		return NewErrorWithCode(ErrCodeConnectionReset, msg, p.provider, err)
	case containsAny(lower, "connection refused", "no such host", "network is unreachable"):
		return NewErrorWithCode(ErrCodeConnectionRefused, msg, p.provider, err)
	}
	return nil
}
