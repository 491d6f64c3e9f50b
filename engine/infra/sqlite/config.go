package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/compozy/sqlagent/pkg/config"
)

const memoryPath = ":memory:"

// Config captures SQLite store configuration derived from application settings.
type Config struct {
	// Path is the database location or ":memory:" for in-memory deployments.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// MaxIdleConns limits idle connections retained in the pool.
	MaxIdleConns int

	// ConnMaxLifetime bounds connection reuse duration.
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime bounds idle connection retention.
	ConnMaxIdleTime time.Duration

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration
}

// ConfigFromApp maps the database section of the application config.
func ConfigFromApp(cfg *config.DatabaseConfig) *Config {
	return &Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		BusyTimeout:     cfg.BusyTimeout,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("sqlite: config is required")
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("sqlite: path is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("sqlite: connection limits must not be negative")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy timeout must not be negative")
	}
	return nil
}

func (c *Config) inMemory() bool {
	return c.Path == memoryPath
}
