package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel/metric"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Manager builds per client rate limiting middleware.
type Manager struct {
	config   *Config
	store    limiter.Store
	driver   string
	global   *limiter.Limiter
	routes   map[string]*limiter.Limiter
	counters *blockCounter
}

// NewManager creates a manager backed by redis when client is non-nil and by
// process memory otherwise.
func NewManager(cfg *Config, client *redis.Client) (*Manager, error) {
	return NewManagerWithMetrics(context.Background(), cfg, client, nil)
}

// NewManagerWithMetrics is NewManager that also counts blocked requests.
func NewManagerWithMetrics(
	ctx context.Context,
	cfg *Config,
	client *redis.Client,
	meter metric.Meter,
) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := limiter.StoreOptions{Prefix: cfg.Prefix, MaxRetry: cfg.MaxRetry}
	m := &Manager{config: cfg, routes: make(map[string]*limiter.Limiter)}
	if client != nil {
		store, err := sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
		m.store, m.driver = store, DriverRedis
	} else {
		m.store, m.driver = memory.NewStoreWithOptions(opts), DriverMemory
	}
	m.global = limiter.New(m.store, cfg.GlobalRate.ToLimiterRate())
	for route, rate := range cfg.RouteRates {
		if rate.Disabled {
			continue
		}
		m.routes[route] = limiter.New(m.store, rate.ToLimiterRate())
	}
	counters, err := newBlockCounter(meter)
	if err != nil {
		return nil, err
	}
	m.counters = counters
	logger.FromContext(ctx).Debug("Rate limiter ready",
		"driver", m.driver,
		"limit", cfg.GlobalRate.Limit,
		"period", cfg.GlobalRate.Period,
	)
	return m, nil
}

// Driver reports the backing store.
func (m *Manager) Driver() string {
	return m.driver
}

// Middleware limits requests per client IP. Route overrides replace the
// global limit for the routes they name.
func (m *Manager) Middleware() gin.HandlerFunc {
	global := m.handler(m.global, "global")
	routes := make(map[string]gin.HandlerFunc, len(m.routes))
	for route, lim := range m.routes {
		routes[route] = m.handler(lim, route)
	}
	return func(c *gin.Context) {
		if m.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}
		if h, ok := routes[c.FullPath()]; ok {
			h(c)
			return
		}
		global(c)
	}
}

func (m *Manager) handler(lim *limiter.Limiter, scope string) gin.HandlerFunc {
	return mgin.NewMiddleware(
		lim,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return scope + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.counters.inc(c.Request.Context(), route)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.FromContext(c.Request.Context()).Error("Rate limiter failed, allowing request", "error", err)
			c.Next()
		}),
	)
}

func (m *Manager) excluded(path string) bool {
	for _, p := range m.config.ExcludedPaths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
