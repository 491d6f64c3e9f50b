package llmadapter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limits throttles calls to a provider. Zero values disable a limit.
type Limits struct {
	MaxConcurrent     int
	RequestsPerMinute float64
}

func (l Limits) enabled() bool {
	return l.MaxConcurrent > 0 || l.RequestsPerMinute > 0
}

// limitedModel shares one concurrency slot pool and one token bucket across
// every caller of the wrapped model.
type limitedModel struct {
	model   llms.Model
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// WithLimits wraps model so every call respects limits. The model is returned
// unchanged when no limit is set.
func WithLimits(model llms.Model, limits Limits) llms.Model {
	if model == nil || !limits.enabled() {
		return model
	}
	m := &limitedModel{model: model}
	if limits.MaxConcurrent > 0 {
		m.sem = semaphore.NewWeighted(int64(limits.MaxConcurrent))
	}
	if limits.RequestsPerMinute > 0 {
		burst := max(1, int(limits.RequestsPerMinute/60))
		m.limiter = rate.NewLimiter(rate.Limit(limits.RequestsPerMinute/60), burst)
	}
	return m
}

func (m *limitedModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	if m.sem != nil {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for provider slot: %w", err)
		}
		defer m.sem.Release(1)
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for provider rate limit: %w", err)
		}
	}
	return m.model.GenerateContent(ctx, messages, options...)
}

func (m *limitedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
