package config

import (
	"bytes"
	"testing"

	appconfig "github.com/compozy/sqlagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	manager := appconfig.NewManager(appconfig.NewService())
	_, err := manager.Load(t.Context(), appconfig.NewCLIProvider(map[string]any{"port": 9000}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close(t.Context()) })
	ctx := appconfig.ContextWithManager(t.Context(), manager)

	t.Run("Should flatten values with their sources", func(t *testing.T) {
		entries := Collect(ctx)
		byPath := make(map[string]Entry, len(entries))
		for _, e := range entries {
			byPath[e.Path] = e
		}
		require.Contains(t, byPath, "server.port")
		assert.Equal(t, 9000, byPath["server.port"].Value)
		assert.Equal(t, appconfig.SourceCLI, byPath["server.port"].Source)
		assert.Equal(t, "5s", byPath["server.timeouts.server_shutdown"].Value)
		assert.Equal(t, appconfig.SourceDefault, byPath["database.path"].Source)
	})
	t.Run("Should never print secrets", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-secret")
		m := appconfig.NewManager(appconfig.NewService())
		_, err := m.Load(t.Context())
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close(t.Context()) })
		var buf bytes.Buffer
		require.NoError(t, writeTable(&buf, Collect(appconfig.ContextWithManager(t.Context(), m))))
		assert.NotContains(t, buf.String(), "sk-secret")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})
	t.Run("Should render YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeYAML(&buf, Collect(ctx)[:1]))
		assert.Contains(t, buf.String(), "path:")
		assert.Contains(t, buf.String(), "source:")
	})
}
