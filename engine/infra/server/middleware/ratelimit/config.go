package ratelimit

import (
	"fmt"
	"time"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	// Per client limit applied to every route
	GlobalRate RateConfig `yaml:"global_rate"`

	// Per route overrides, matched by the registered route template
	RouteRates map[string]RateConfig `yaml:"route_rates"`

	Prefix   string `yaml:"prefix"`
	MaxRetry int    `yaml:"max_retry"`

	ExcludedPaths []string `yaml:"excluded_paths"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period   time.Duration `yaml:"period"`
	Limit    int64         `yaml:"limit"`
	Disabled bool          `yaml:"disabled,omitempty"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		GlobalRate: RateConfig{
			Limit:  60,
			Period: time.Minute,
		},
		RouteRates:    map[string]RateConfig{},
		Prefix:        "sqlagent:ratelimit",
		MaxRetry:      3,
		ExcludedPaths: []string{"/healthz", "/metrics"},
	}
}

// ConfigFromApp maps the rate limit section of the application config.
// excluded lists paths that are never limited.
func ConfigFromApp(cfg *config.RateLimitConfig, excluded ...string) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	if cfg.Limit > 0 {
		out.GlobalRate.Limit = cfg.Limit
	}
	if cfg.Period > 0 {
		out.GlobalRate.Period = cfg.Period
	}
	if cfg.Prefix != "" {
		out.Prefix = cfg.Prefix
	}
	out.ExcludedPaths = append(out.ExcludedPaths, excluded...)
	return out
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GlobalRate.Limit <= 0 {
		return fmt.Errorf("global rate limit must be positive")
	}
	if c.GlobalRate.Period <= 0 {
		return fmt.Errorf("global rate period must be positive")
	}
	for route, rate := range c.RouteRates {
		if rate.Disabled {
			continue
		}
		if rate.Limit <= 0 || rate.Period <= 0 {
			return fmt.Errorf("route rate limit for %s must be positive", route)
		}
	}
	return nil
}
