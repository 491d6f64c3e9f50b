package server

import (
	"sync"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
)

// configReloader applies the parts of a reloaded configuration that can
// change on a live server and warns about the rest.
type configReloader struct {
	mu      sync.Mutex
	log     logger.Logger
	applied *config.Config
}

func (s *Server) watchConfig() {
	manager := config.ManagerFromContext(s.ctx)
	r := &configReloader{log: logger.FromContext(s.ctx), applied: manager.Get()}
	manager.OnChange(r.apply)
}

func (r *configReloader) apply(next *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.applied
	r.applied = next
	if prev == nil || next == nil {
		return
	}
	if prev.Runtime.LogLevel != next.Runtime.LogLevel {
		if logger.SetLevel(r.log, logger.LogLevel(next.Runtime.LogLevel)) {
			r.log.Info("Log level changed", "level", next.Runtime.LogLevel)
		}
	}
	if restart := restartRequired(prev, next); len(restart) > 0 {
		r.log.Warn("Configuration changed; restart to apply", "sections", restart)
	}
}

// restartRequired lists sections whose values are only read at startup.
func restartRequired(prev, next *config.Config) []string {
	var out []string
	if prev.Server.Host != next.Server.Host || prev.Server.Port != next.Server.Port {
		out = append(out, "server")
	}
	if prev.Database != next.Database {
		out = append(out, "database")
	}
	if prev.LLM != next.LLM {
		out = append(out, "llm")
	}
	if prev.Chat != next.Chat {
		out = append(out, "chat")
	}
	if prev.RateLimit != next.RateLimit {
		out = append(out, "ratelimit")
	}
	return out
}
