package server

import (
	"fmt"
	"strings"

	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/sqlagent/engine/infra/server/middleware/size"
	"github.com/compozy/sqlagent/engine/infra/server/router"
	"github.com/compozy/sqlagent/engine/infra/server/routes"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/compozy/sqlagent/pkg/version"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func (s *Server) rateLimitMiddleware(cfg *config.Config) (gin.HandlerFunc, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	rlConfig := ratelimit.ConfigFromApp(&cfg.RateLimit, s.monitoring.Path())
	var client *redis.Client
	if cfg.RateLimit.Store == storeRedis && s.redis != nil {
		client = s.redis.Client()
	}
	manager, err := ratelimit.NewManagerWithMetrics(s.ctx, rlConfig, client, s.monitoring.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiting: %w", err)
	}
	logger.FromContext(s.ctx).Info("Rate limiter initialized",
		"driver", manager.Driver(),
		"limit", rlConfig.GlobalRate.Limit,
		"period", rlConfig.GlobalRate.Period,
	)
	return manager.Middleware(), nil
}

func (s *Server) buildRouter(state *appstate.State) error {
	cfg := config.FromContext(s.ctx)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(router.RequestID(logger.FromContext(s.ctx)))
	r.Use(LoggerMiddleware())
	if cfg.Server.CORSEnabled {
		r.Use(CORSMiddleware(cfg.Server.CORS))
	}
	r.Use(size.BodySizeLimiter(cfg.Server.MaxBodySize))
	limit, err := s.rateLimitMiddleware(cfg)
	if err != nil {
		return err
	}
	if limit != nil {
		r.Use(limit)
	}
	r.Use(s.monitoring.GinMiddleware())
	r.Use(appstate.StateMiddleware(state))
	r.Use(router.ErrorHandler())
	if s.monitoring.IsInitialized() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	RegisterRoutes(s.ctx, r, s)
	s.router = r
	return nil
}

func (s *Server) logStartupBanner() {
	log := logger.FromContext(s.ctx)
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(s.serverConfig.Host), s.serverConfig.Port)
	lines := []string{
		fmt.Sprintf("SQL Agent %s", version.Get().Version),
		fmt.Sprintf("  Tables        > %s%s", httpURL, routes.Tables()),
		fmt.Sprintf("  Chat          > %s%s", httpURL, routes.ChatQuery()),
		fmt.Sprintf("  Direct query  > %s%s", httpURL, routes.DirectQuery()),
		fmt.Sprintf("  Health        > %s%s", httpURL, routes.Health()),
	}
	if s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics       > %s%s", httpURL, s.monitoring.Path()))
	}
	log.Info("\n" + strings.Join(lines, "\n"))
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
