package core

import (
	"regexp"
	"strings"
)

const maxRedactedLen = 512

type redactRule struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: JWTs and URI credentials are matched before the looser
// key=value and bare-key rules can split them.
var redactRules = []redactRule{
	{regexp.MustCompile(`\b(eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+)\b`), "[JWT_REDACTED]"},
	{regexp.MustCompile(`(?i)((?:redis|rediss|https?|file)://)[^@\s/]+@`), "$1[REDACTED]@"},
	// SQLite DSN options such as _auth_pass=... or _pragma=key('...')
	{regexp.MustCompile(`(?i)(_auth_pass|_pragma=key)(=|\()[^&\s)]+\)?`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-\._~\+\/]+=*`), "$1[REDACTED]"},
	{
		regexp.MustCompile(
			`(?i)(api[_-]?key|token|secret|password|pwd|access_token|refresh_token)\s*[:=]\s*["']?[^"'\s]+["']?`,
		),
		"$1=[REDACTED]",
	},
	{regexp.MustCompile(`\b((?:sk|gsk|pk|key)[-_][A-Za-z0-9_\-]{16,})\b`), "[REDACTED]"},
}

// RedactString scrubs credentials from text headed for logs, metrics labels
// or client payloads. Output is trimmed and capped at 512 bytes.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	for _, rule := range redactRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	if len(s) > maxRedactedLen {
		s = s[:maxRedactedLen] + "…"
	}
	return s
}

func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
