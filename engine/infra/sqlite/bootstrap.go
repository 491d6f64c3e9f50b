package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gofrs/flock"
)

// Bootstrap opens the database, creating and seeding it first when the file
// does not exist yet. An existing file is opened untouched. The returned flag
// reports whether the sample data was created.
func Bootstrap(ctx context.Context, cfg *Config) (*Store, bool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	log := logger.FromContext(ctx)
	if !cfg.inMemory() {
		unlock, err := lockPath(ctx, cfg.Path)
		if err != nil {
			return nil, false, err
		}
		defer unlock()
	}
	exists := false
	if !cfg.inMemory() {
		_, err := os.Stat(cfg.Path)
		switch {
		case err == nil:
			exists = true
		case !errors.Is(err, fs.ErrNotExist):
			return nil, false, fmt.Errorf("sqlite: stat database: %w", err)
		}
	}
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	if exists {
		log.Info("database already exists", "path", cfg.Path)
		return store, false, nil
	}
	if err := ApplyMigrations(ctx, store.DB(), CatalogMigrations); err != nil {
		if closeErr := store.Close(ctx); closeErr != nil {
			log.Warn("sqlite: close after failed bootstrap", "error", closeErr)
		}
		if !cfg.inMemory() {
			_ = os.Remove(cfg.Path)
		}
		return nil, false, err
	}
	log.Info("database created and seeded", "path", cfg.Path)
	return store, true, nil
}

const lockRetryDelay = 50 * time.Millisecond

// lockPath takes an exclusive file lock next to the database so concurrent
// processes never both decide to seed the same file.
func lockPath(ctx context.Context, path string) (func(), error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("sqlite: lock database: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("sqlite: lock database %s: not acquired", path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.FromContext(ctx).Warn("sqlite: release bootstrap lock", "error", err)
		}
	}, nil
}
