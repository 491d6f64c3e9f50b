package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/core"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"Should map canceled contexts", context.Canceled, "OPERATION_CANCELED"},
		{"Should map empty queries", uc.ErrEmptyQuery, "EMPTY_QUERY"},
		{
			"Should map rejected statements",
			fmt.Errorf("%w: only SELECT statements are allowed", sqltool.ErrQueryRejected),
			"QUERY_REJECTED",
		},
		{"Should map exhausted agent loops", fmt.Errorf("run: %w", agent.ErrMaxIterations), "MAX_ITERATIONS"},
		{
			"Should keep provider error codes",
			llmadapter.NewErrorWithCode(llmadapter.ErrCodeRateLimit, "slow down", "groq", nil),
			llmadapter.ErrCodeRateLimit,
		},
		{
			"Should keep agent error codes",
			core.NewError(errors.New("boom"), agent.ErrCodeToolExecution, nil),
			agent.ErrCodeToolExecution,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cliErr := categorizeError(tc.err)
			require.NotNil(t, cliErr)
			assert.Equal(t, tc.code, cliErr.Code)
		})
	}

	t.Run("Should leave unknown errors alone", func(t *testing.T) {
		assert.Nil(t, categorizeError(errors.New("plain")))
	})

	t.Run("Should redact secrets from provider details", func(t *testing.T) {
		err := llmadapter.NewErrorWithCode(llmadapter.ErrCodeUnauthorized, "bad api_key=sk-live", "openai", nil)
		cliErr := categorizeError(err)
		require.NotNil(t, cliErr)
		assert.NotContains(t, cliErr.Details, "sk-live")
		assert.Equal(t, "openai", cliErr.Context["provider"])
	})
}
