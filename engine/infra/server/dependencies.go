package server

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/chat"
	"github.com/compozy/sqlagent/engine/infra/cache"
	"github.com/compozy/sqlagent/engine/infra/monitoring"
	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	storeRedis                = "redis"
	monitoringShutdownTimeout = 5 * time.Second
)

func (s *Server) setupDependencies() (*appstate.State, error) {
	log := logger.FromContext(s.ctx)
	cfg := config.FromContext(s.ctx)
	start := time.Now()
	if err := s.setupStore(cfg); err != nil {
		return nil, err
	}
	if err := s.setupRedis(cfg); err != nil {
		return nil, err
	}
	s.setupMonitoring(cfg)
	toolkit, ag, err := s.setupAgent(cfg)
	if err != nil {
		return nil, err
	}
	history, err := chat.NewHistory(s.ctx, &cfg.Chat, chat.Deps{DB: s.store.DB(), Redis: s.redisClientOrNil()})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat history: %w", err)
	}
	deps := appstate.NewBaseDeps(cfg, s.store, s.redis, s.monitoring)
	state, err := appstate.NewState(deps, toolkit, ag, history)
	if err != nil {
		return nil, fmt.Errorf("failed to create app state: %w", err)
	}
	s.watchConfig()
	log.Info("Server dependencies setup completed",
		"total_duration", time.Since(start),
		"database", s.store.Path(),
		"chat_store", cfg.Chat.Store,
		"agent_ready", ag != nil,
	)
	return state, nil
}

func (s *Server) setupStore(cfg *config.Config) error {
	log := logger.FromContext(s.ctx)
	start := time.Now()
	store, created, err := sqlite.Bootstrap(s.ctx, sqlite.ConfigFromApp(&cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	s.store = store
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), cleanupTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	})
	log.Info("Database ready",
		"path", cfg.Database.Path,
		"seeded", created,
		"duration", time.Since(start),
	)
	return nil
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Chat.Store == storeRedis || (cfg.RateLimit.Enabled && cfg.RateLimit.Store == storeRedis)
}

func (s *Server) setupRedis(cfg *config.Config) error {
	if !needsRedis(cfg) {
		return nil
	}
	r, err := cache.NewRedis(s.ctx, cache.ConfigFromApp(&cfg.Redis))
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.redis = r
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), cleanupTimeout)
		defer cancel()
		if err := r.Close(ctx); err != nil {
			logger.FromContext(s.ctx).Error("Failed to close redis", "error", err)
		}
	})
	return nil
}

func (s *Server) redisClientOrNil() redis.Cmdable {
	if s.redis == nil {
		return nil
	}
	return s.redis.Client()
}

func (s *Server) setupMonitoring(cfg *config.Config) {
	log := logger.FromContext(s.ctx)
	start := time.Now()
	svc := monitoring.NewMonitoringServiceWithFallback(s.ctx, monitoring.ConfigFromApp(&cfg.Monitoring))
	s.monitoring = svc
	if !svc.IsInitialized() {
		log.Info("Monitoring is disabled", "duration", time.Since(start))
		return
	}
	log.Info("Monitoring service initialized successfully",
		"path", svc.Path(),
		"duration", time.Since(start),
	)
	s.addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
	})
}

// setupAgent builds the SQL toolkit and the agent. A model that cannot be
// created leaves the agent nil so the table and direct query routes still work.
func (s *Server) setupAgent(cfg *config.Config) (*sqltool.Toolkit, *agent.Agent, error) {
	log := logger.FromContext(s.ctx)
	catalog := sqlite.NewCatalog(s.store.DB())
	opts := sqltool.Options{
		SampleRows:     cfg.Database.SampleRows,
		ReadOnly:       cfg.Database.ReadOnlyQueries,
		SchemaCacheTTL: cfg.LLM.SchemaCacheTTL,
	}
	client, err := llmadapter.NewClient(s.ctx, &cfg.LLM)
	if err != nil {
		log.Error("Failed to create LLM client, chat queries are disabled",
			"provider", cfg.LLM.Provider,
			"model", cfg.LLM.Model,
			"error", err,
		)
		toolkit, err := sqltool.New(s.ctx, catalog, nil, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sql toolkit: %w", err)
		}
		return toolkit, nil, nil
	}
	s.addCleanup(func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close LLM client", "error", err)
		}
	})
	toolkit, err := sqltool.New(s.ctx, catalog, client.Model(), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sql toolkit: %w", err)
	}
	ag, err := agent.New(client, toolkit.Tools(), agent.ConfigFromApp(&cfg.LLM),
		agent.WithRecorder(s.monitoring.AgentRecorder()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent: %w", err)
	}
	log.Info("SQL agent ready",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"tools", len(toolkit.Tools()),
	)
	return toolkit, ag, nil
}
