package appstate

import (
	"context"
	"fmt"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/chat"
	"github.com/compozy/sqlagent/engine/infra/cache"
	"github.com/compozy/sqlagent/engine/infra/monitoring"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// BaseDeps are the infrastructure handles owned by the server.
type BaseDeps struct {
	Config     *config.Config
	Store      *sqlite.Store
	Redis      *cache.Redis
	Monitoring *monitoring.Service
}

func NewBaseDeps(cfg *config.Config, store *sqlite.Store, redis *cache.Redis, mon *monitoring.Service) BaseDeps {
	return BaseDeps{
		Config:     cfg,
		Store:      store,
		Redis:      redis,
		Monitoring: mon,
	}
}

// State is shared by every request handler.
type State struct {
	BaseDeps
	Catalog *sqlite.Catalog
	Toolkit *sqltool.Toolkit
	Agent   *agent.Agent
	History chat.History
}

func NewState(deps BaseDeps, toolkit *sqltool.Toolkit, ag *agent.Agent, history chat.History) (*State, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("database store is required")
	}
	if toolkit == nil {
		return nil, fmt.Errorf("sql toolkit is required")
	}
	if history == nil {
		return nil, fmt.Errorf("chat history is required")
	}
	return &State{
		BaseDeps: deps,
		Catalog:  sqlite.NewCatalog(deps.Store.DB()),
		Toolkit:  toolkit,
		Agent:    ag,
		History:  history,
	}, nil
}

// StreamingMetrics returns the SSE instruments or nil when monitoring is off.
func (s *State) StreamingMetrics() *monitoring.StreamingMetrics {
	if s.Monitoring == nil {
		return nil
	}
	return s.Monitoring.Streaming()
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok || state == nil {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
