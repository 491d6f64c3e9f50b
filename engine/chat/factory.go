package chat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Deps carries the backends a store may need.
type Deps struct {
	DB    *sql.DB
	Redis redis.Cmdable
}

// NewHistory builds the store selected by chat.store.
func NewHistory(ctx context.Context, cfg *config.ChatConfig, deps Deps) (History, error) {
	var (
		h   History
		err error
	)
	switch cfg.Store {
	case "memory", "":
		h = NewMemoryHistory(cfg.MaxEntries)
	case "sqlite":
		h, err = NewSQLiteHistory(ctx, deps.DB, cfg.MaxEntries)
	case "redis":
		h, err = NewRedisHistory(deps.Redis, cfg.RedisKey, cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("chat: unsupported store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Chat history ready", "store", cfg.Store, "max_entries", cfg.MaxEntries)
	return h, nil
}
