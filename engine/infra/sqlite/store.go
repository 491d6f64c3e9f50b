package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/google/uuid"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5 * time.Second
	pingTimeout        = 5 * time.Second
)

// Store owns the SQLite connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database described by cfg and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn := buildDSN(cfg)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	configurePool(db, cfg)
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	logger.FromContext(ctx).Debug("sqlite store opened", "path", cfg.Path)
	return &Store{db: db, path: cfg.Path}, nil
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.path
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close database: %w", err)
	}
	logger.FromContext(ctx).Debug("sqlite store closed", "path", s.path)
	return nil
}

// buildDSN renders a modernc DSN with pragmas applied to every connection.
// In-memory databases get a unique shared-cache name so each Store is isolated.
func buildDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy == 0 {
		busy = defaultBusyTimeout
	}
	pragmas := []string{
		"_pragma=foreign_keys(ON)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()),
	}
	if cfg.inMemory() {
		name := "sqlagent-" + uuid.NewString()
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", name, strings.Join(pragmas, "&"))
	}
	pragmas = append([]string{"_pragma=journal_mode(WAL)"}, pragmas...)
	return fmt.Sprintf("file:%s?%s", cfg.Path, strings.Join(pragmas, "&"))
}

func configurePool(db *sql.DB, cfg *Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.inMemory() {
		// The shared in-memory database lives only while a connection is open.
		db.SetMaxIdleConns(max(cfg.MaxIdleConns, 1))
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
