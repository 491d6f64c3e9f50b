package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/chat"
	"github.com/compozy/sqlagent/engine/infra/cache"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Runtime is the in-process stack used by the one-shot commands.
type Runtime struct {
	Store   *sqlite.Store
	Catalog *sqlite.Catalog
	Toolkit *sqltool.Toolkit
	Agent   *agent.Agent
	History chat.History

	closers []func(context.Context) error
}

// RuntimeOptions selects the optional parts of a Runtime.
type RuntimeOptions struct {
	WithAgent bool
}

// OpenRuntime bootstraps the database and builds the toolkit, plus the model,
// agent and chat history when requested.
func OpenRuntime(ctx context.Context, opts RuntimeOptions) (_ *Runtime, err error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration missing from context")
	}
	rt := &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()
	store, _, err := sqlite.Bootstrap(ctx, sqlite.ConfigFromApp(&cfg.Database))
	if err != nil {
		return nil, err
	}
	rt.Store = store
	rt.closers = append(rt.closers, store.Close)
	rt.Catalog = sqlite.NewCatalog(store.DB())
	toolOpts := sqltool.Options{
		SampleRows:     cfg.Database.SampleRows,
		ReadOnly:       cfg.Database.ReadOnlyQueries,
		SchemaCacheTTL: cfg.LLM.SchemaCacheTTL,
	}
	if !opts.WithAgent {
		if rt.Toolkit, err = sqltool.New(ctx, rt.Catalog, nil, toolOpts); err != nil {
			return nil, err
		}
		return rt, nil
	}
	client, err := llmadapter.NewClient(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
	if rt.Toolkit, err = sqltool.New(ctx, rt.Catalog, client.Model(), toolOpts); err != nil {
		return nil, err
	}
	if rt.Agent, err = agent.New(client, rt.Toolkit.Tools(), agent.ConfigFromApp(&cfg.LLM)); err != nil {
		return nil, err
	}
	var redisClient redis.Cmdable
	if cfg.Chat.Store == "redis" {
		r, err := cache.NewRedis(ctx, cache.ConfigFromApp(&cfg.Redis))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, r.Close)
		redisClient = r.Client()
	}
	rt.History, err = chat.NewHistory(ctx, &cfg.Chat, chat.Deps{DB: store.DB(), Redis: redisClient})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("runtime ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	r.closers = nil
	return errors.Join(errs...)
}
