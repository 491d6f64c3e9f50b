package agent

import (
	"context"
	"errors"
	"net"
	"regexp"
	"time"

	"github.com/compozy/sqlagent/engine/core"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/sethvargo/go-retry"
)

var transientRetryPattern = regexp.MustCompile(`(?i)(timeout|temporarily|try again|connection reset)`)

func (a *Agent) backoff() retry.Backoff {
	b := retry.NewExponential(a.cfg.Retry.BaseDelay)
	b = retry.WithCappedDuration(a.cfg.Retry.MaxDelay, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(a.cfg.Retry.Attempts), b) // #nosec G115 -- bounded in withDefaults
}

// generate calls the model, retrying transient failures.
func (a *Agent) generate(ctx context.Context, messages []llmadapter.Message) (*llmadapter.LLMResponse, error) {
	req := a.request(messages)
	var response *llmadapter.LLMResponse
	attempt := 0
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		attempt++
		start := time.Now()
		resp, err := a.client.GenerateContent(ctx, req)
		a.recorder.RecordLLMCall(ctx, time.Since(start), err)
		if err != nil {
			if isRetryableError(ctx, err) {
				logger.FromContext(ctx).Debug("Retrying LLM call", "attempt", attempt, "error", core.RedactError(err))
				return retry.RetryableError(err)
			}
			return err
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, core.NewError(err, ErrCodeLLMGeneration, map[string]any{"attempts": attempt})
	}
	return response, nil
}

func isRetryableError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var llmErr *llmadapter.Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return transientRetryPattern.MatchString(err.Error())
}
