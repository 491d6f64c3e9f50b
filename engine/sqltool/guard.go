package sqltool

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/compozy/sqlagent/engine/infra/sqlite"
)

var ErrQueryRejected = errors.New("query rejected")

var (
	readOnlyKeywords  = []string{"SELECT", "WITH", "EXPLAIN"}
	mutatingStatement = regexp.MustCompile(
		`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|REPLACE\s+INTO|ATTACH|DETACH|VACUUM|REINDEX|PRAGMA)\b`,
	)
	whitespace = regexp.MustCompile(`\s+`)
)

// Guard restricts statements to read-only queries. Literals and comments are
// ignored, so a keyword inside a string value does not trip it.
type Guard struct{}

// Check rejects anything other than a single read-only statement.
func (g *Guard) Check(statement string) error {
	s := strings.TrimSpace(sqlite.StripLiterals(statement))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return fmt.Errorf("%w: empty statement", ErrQueryRejected)
	}
	if err := sqlite.CheckSingleStatement(s); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryRejected, err)
	}
	keyword := strings.ToUpper(sqlite.FirstKeyword(s))
	if !slices.Contains(readOnlyKeywords, keyword) {
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrQueryRejected)
	}
	if match := mutatingStatement.FindString(s); match != "" {
		match = whitespace.ReplaceAllString(strings.ToUpper(match), " ")
		return fmt.Errorf("%w: disallowed keyword %s", ErrQueryRejected, match)
	}
	return nil
}

// IsMutating reports whether statement may change the schema or data.
func IsMutating(statement string) bool {
	if !sqlite.ReturnsRows(statement) {
		return true
	}
	return mutatingStatement.MatchString(sqlite.StripLiterals(statement))
}
