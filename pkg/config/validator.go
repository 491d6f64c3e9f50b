package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("hostport", validateHostPort)
}

func validateHostPort(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.SplitHostPort(value)
	return err == nil
}

// validateCustom performs cross-field validation beyond struct tags.
func validateCustom(config *Config) error {
	needsRedis := config.Chat.Store == "redis" || (config.RateLimit.Enabled && config.RateLimit.Store == "redis")
	if needsRedis && config.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis backed stores are enabled")
	}
	if config.Chat.Store == "redis" && strings.TrimSpace(config.Chat.RedisKey) == "" {
		return fmt.Errorf("chat.redis_key is required for the redis chat store")
	}
	if config.RateLimit.Enabled && config.RateLimit.Period <= 0 {
		return fmt.Errorf("ratelimit.period must be positive")
	}
	if config.LLM.RetryBackoffMax > 0 && config.LLM.RetryBackoffMax < config.LLM.RetryBackoffBase {
		return fmt.Errorf("llm.retry_backoff_max must not be lower than llm.retry_backoff_base")
	}
	return nil
}
