package monitoring

import (
	"fmt"
	"strings"

	"github.com/compozy/sqlagent/pkg/config"
)

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path"    yaml:"path"    mapstructure:"path"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Path:    "/metrics",
	}
}

// ConfigFromApp maps the monitoring section of the application config.
func ConfigFromApp(cfg *config.MonitoringConfig) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	out.Enabled = cfg.Enabled
	if cfg.Path != "" {
		out.Path = cfg.Path
	}
	return out
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	for _, reserved := range reservedPaths {
		if c.Path == reserved || strings.HasPrefix(c.Path, reserved+"/") {
			return fmt.Errorf("monitoring path cannot shadow API route %s", reserved)
		}
	}
	return nil
}

var reservedPaths = []string{"/tables", "/chat_query", "/direct_query", "/test_sql_tools", "/chat_history", "/healthz"}
