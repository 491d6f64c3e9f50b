package server

import (
	"bytes"
	"testing"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestConfigReloader(t *testing.T) {
	t.Run("Should retune the log level without a restart", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: &buf})
		prev := config.Default()
		prev.Runtime.LogLevel = "error"
		r := &configReloader{log: log, applied: prev}

		next := config.Default()
		next.Runtime.LogLevel = "info"
		r.apply(next)
		log.Info("after reload")
		assert.Contains(t, buf.String(), "after reload")
		assert.NotContains(t, buf.String(), "restart to apply")
	})

	t.Run("Should list sections that need a restart", func(t *testing.T) {
		prev := config.Default()
		next := config.Default()
		next.Server.Port = prev.Server.Port + 1
		next.Chat.MaxEntries = prev.Chat.MaxEntries + 5
		assert.Equal(t, []string{"server", "chat"}, restartRequired(prev, next))
		assert.Empty(t, restartRequired(prev, config.Default()))
	})
}
