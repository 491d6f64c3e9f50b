package sqlite

import (
	"errors"
	"regexp"
	"slices"
	"strings"
)

var ErrMultipleStatements = errors.New("multiple statements are not allowed")

var (
	rowKeywords     = []string{"SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES"}
	returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// StripLiterals blanks string literals, quoted identifiers and comments so
// keyword and separator scans only see SQL tokens. Literals collapse to an
// empty pair of their quotes and comments to a single space.
func StripLiterals(statement string) string {
	var b strings.Builder
	b.Grow(len(statement))
	for i := 0; i < len(statement); {
		ch := statement[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`' || ch == '[':
			closing := ch
			if ch == '[' {
				closing = ']'
			}
			b.WriteByte(ch)
			b.WriteByte(closing)
			i = skipQuoted(statement, i+1, closing)
		case ch == '-' && strings.HasPrefix(statement[i:], "--"):
			b.WriteByte(' ')
			idx := strings.IndexByte(statement[i:], '\n')
			if idx < 0 {
				return b.String()
			}
			i += idx
		case ch == '/' && strings.HasPrefix(statement[i:], "/*"):
			b.WriteByte(' ')
			idx := strings.Index(statement[i+2:], "*/")
			if idx < 0 {
				return b.String()
			}
			i += idx + 4
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// skipQuoted returns the index just past the closing quote, treating a
// doubled quote as an escaped one.
func skipQuoted(s string, i int, closing byte) int {
	for i < len(s) {
		if s[i] != closing {
			i++
			continue
		}
		if closing != ']' && i+1 < len(s) && s[i+1] == closing {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

// CheckSingleStatement fails when statement holds more than one SQL statement.
// A single trailing semicolon is accepted.
func CheckSingleStatement(statement string) error {
	s := strings.TrimSpace(StripLiterals(statement))
	s = strings.TrimRight(s, "; \t\r\n")
	if strings.Contains(s, ";") {
		return ErrMultipleStatements
	}
	return nil
}

// ReturnsRows reports whether statement is expected to yield a result set,
// including writes with a RETURNING clause.
func ReturnsRows(statement string) bool {
	s := StripLiterals(statement)
	if slices.Contains(rowKeywords, strings.ToUpper(FirstKeyword(s))) {
		return true
	}
	return returningClause.MatchString(s)
}

// FirstKeyword returns the first word of statement, skipping comments and
// leading parentheses.
func FirstKeyword(statement string) string {
	s := strings.TrimSpace(statement)
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = strings.TrimSpace(s[idx+1:])
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = strings.TrimSpace(s[idx+2:])
		case strings.HasPrefix(s, "("):
			s = strings.TrimSpace(s[1:])
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
			})
			if end < 0 {
				return s
			}
			return s[:end]
		}
	}
}
