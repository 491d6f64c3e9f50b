package uc

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery     = errors.New("no query provided")
	ErrToolNotFound   = errors.New("query tool not available")
	ErrNoRunnerConfig = errors.New("chat query requires an agent and a history")
)

// ValidateInput rejects blank questions and statements.
func ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyQuery
	}
	return nil
}
