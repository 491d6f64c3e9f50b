package config

import (
	"context"
	"sync"

	"github.com/compozy/sqlagent/pkg/logger"
)

type ContextKey string

const ManagerCtxKey ContextKey = "config_manager"

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ManagerCtxKey, m)
}

// ManagerFromContext retrieves the configuration manager from the context,
// falling back to a lazily loaded manager built from defaults and environment.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx != nil {
		if m, ok := ctx.Value(ManagerCtxKey).(*Manager); ok && m != nil {
			return m
		}
	}
	defaultManagerOnce.Do(func() {
		m := NewManager(NewService())
		if _, err := m.Load(context.Background(), NewEnvProvider()); err != nil {
			logger.FromContext(ctx).Warn("failed to load default configuration, using built-in defaults", "error", err)
			m.current.Store(Default())
		}
		defaultManager = m
	})
	return defaultManager
}

// FromContext returns the active configuration for the provided context.
func FromContext(ctx context.Context) *Config {
	m := ManagerFromContext(ctx)
	if m == nil {
		return nil
	}
	return m.Get()
}
