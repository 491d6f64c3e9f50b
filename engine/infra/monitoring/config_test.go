package monitoring

import (
	"testing"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept the default path", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})
	cases := map[string]string{
		"":                 "cannot be empty",
		"metrics":          "must start with '/'",
		"/metrics?x=1":     "query parameters",
		"/tables/metrics":  "cannot shadow API route /tables",
		"/chat_query":      "cannot shadow API route /chat_query",
		"/healthz/metrics": "cannot shadow API route /healthz",
	}
	for path, want := range cases {
		t.Run("Should reject path "+path, func(t *testing.T) {
			err := (&Config{Enabled: true, Path: path}).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	t.Run("Should copy the application settings", func(t *testing.T) {
		cfg := ConfigFromApp(&config.MonitoringConfig{Enabled: true, Path: "/prom"})
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "/prom", cfg.Path)
	})
	t.Run("Should fall back to defaults", func(t *testing.T) {
		cfg := ConfigFromApp(nil)
		assert.False(t, cfg.Enabled)
		assert.Equal(t, "/metrics", cfg.Path)
		assert.Equal(t, "/metrics", ConfigFromApp(&config.MonitoringConfig{}).Path)
	})
}
