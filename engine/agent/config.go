package agent

import (
	"time"

	"github.com/compozy/sqlagent/pkg/config"
)

const (
	defaultMaxIterations      = 10
	defaultMaxToolConcurrency = 4
	defaultRetryAttempts      = 3
	defaultRetryBaseDelay     = 200 * time.Millisecond
	defaultRetryMaxDelay      = 5 * time.Second
)

type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Config tunes the assistant/tools loop.
type Config struct {
	SystemPrompt       string
	Temperature        float64
	MaxTokens          int
	MaxIterations      int
	Timeout            time.Duration
	MaxToolConcurrency int
	Retry              RetryConfig
}

func ConfigFromApp(cfg *config.LLMConfig) Config {
	return Config{
		SystemPrompt:       cfg.SystemPrompt,
		Temperature:        cfg.Temperature,
		MaxTokens:          cfg.MaxTokens,
		MaxIterations:      cfg.MaxIterations,
		Timeout:            cfg.Timeout,
		MaxToolConcurrency: cfg.MaxToolConcurrency,
		Retry: RetryConfig{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBackoffBase,
			MaxDelay:  cfg.RetryBackoffMax,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.MaxToolConcurrency <= 0 {
		c.MaxToolConcurrency = defaultMaxToolConcurrency
	}
	if c.Retry.Attempts < 0 || c.Retry.Attempts > 100 {
		c.Retry.Attempts = defaultRetryAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = defaultRetryBaseDelay
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		c.Retry.MaxDelay = max(defaultRetryMaxDelay, c.Retry.BaseDelay)
	}
	return c
}
