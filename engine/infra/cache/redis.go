package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

type Config struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

func ConfigFromApp(cfg *config.RedisConfig) *Config {
	return &Config{
		Addr:     cfg.Addr,
		Password: cfg.Password.Value(),
		DB:       cfg.DB,
	}
}

// Redis owns the client shared by the redis backed stores.
type Redis struct {
	client *redis.Client
	addr   string
	once   sync.Once
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg *Config) (*Redis, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	logger.FromContext(ctx).Info("Redis connection established", "addr", cfg.Addr, "db", cfg.DB)
	return &Redis{client: client, addr: cfg.Addr}, nil
}

// Client returns the underlying Redis client
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close is safe to call more than once.
func (r *Redis) Close(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		err = r.client.Close()
		if err != nil {
			logger.FromContext(ctx).Error("Redis connection close failed", "error", err)
			return
		}
		logger.FromContext(ctx).Debug("Redis connection closed", "addr", r.addr)
	})
	return err
}
