package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/compozy/sqlagent/engine/core"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnabledService(t *testing.T) *Service {
	t.Helper()
	service, err := NewMonitoringService(t.Context(), &Config{Enabled: true, Path: "/metrics"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = service.Shutdown(context.Background()) })
	return service
}

func scrape(t *testing.T, service *Service) string {
	t.Helper()
	w := httptest.NewRecorder()
	service.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMonitoringService(t *testing.T) {
	t.Run("Should create a disabled service with default config when nil provided", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), nil)
		require.NoError(t, err)
		assert.False(t, service.IsInitialized())
		assert.Equal(t, "/metrics", service.Path())
		assert.NotNil(t, service.Meter())
	})
	t.Run("Should fail with invalid config", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), &Config{Enabled: true, Path: ""})
		require.Error(t, err)
		assert.Nil(t, service)
		assert.Contains(t, err.Error(), "monitoring path cannot be empty")
	})
	t.Run("Should initialize the Prometheus exporter when enabled", func(t *testing.T) {
		service := newEnabledService(t)
		assert.True(t, service.IsInitialized())
		assert.NotNil(t, service.exporter)
		assert.NotNil(t, service.provider)
		assert.NoError(t, service.InitializationError())
	})
}

func TestMonitoringService_ExporterHandler(t *testing.T) {
	t.Run("Should return 503 when not initialized", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), &Config{Enabled: false, Path: "/metrics"})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		service.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "Monitoring service not initialized")
	})
	t.Run("Should expose build info and uptime", func(t *testing.T) {
		body := scrape(t, newEnabledService(t))
		assert.Contains(t, body, "sqlagent_build_info")
		assert.Contains(t, body, "sqlagent_uptime_seconds")
		assert.Contains(t, body, "go_goroutines")
	})
	t.Run("Should expose HTTP metrics recorded by the middleware", func(t *testing.T) {
		service := newEnabledService(t)
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(service.GinMiddleware())
		router.GET("/tables", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "success"}) })
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tables", http.NoBody))
		assert.Contains(t, scrape(t, service), "sqlagent_http_requests_total")
	})
}

func TestAgentMetrics(t *testing.T) {
	t.Run("Should count model and tool calls with their outcome", func(t *testing.T) {
		service := newEnabledService(t)
		rec := service.AgentRecorder()
		ctx := t.Context()
		rec.RecordLLMCall(ctx, 120*time.Millisecond, nil)
		rec.RecordToolCall(ctx, "sql_db_query", time.Millisecond, nil)
		rec.RecordToolCall(ctx, "sql_db_query", time.Millisecond, core.NewError(errors.New("boom"), "TOOL_EXECUTION_ERROR", nil))
		body := scrape(t, service)
		assert.Contains(t, body, "sqlagent_agent_llm_calls_total")
		assert.Contains(t, body, `tool="sql_db_query"`)
		assert.Contains(t, body, `outcome="failure"`)
		assert.Contains(t, body, `error_code="TOOL_EXECUTION_ERROR"`)
	})
	t.Run("Should be a no-op when disabled", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), DefaultConfig())
		require.NoError(t, err)
		assert.NotPanics(t, func() {
			service.AgentRecorder().RecordLLMCall(t.Context(), time.Second, errors.New("x"))
			service.AgentRecorder().RecordToolCall(t.Context(), "sql_db_schema", time.Second, nil)
		})
	})
}

func TestStreamingMetrics(t *testing.T) {
	t.Run("Should track an open stream until it ends", func(t *testing.T) {
		service := newEnabledService(t)
		obs := service.Streaming().Begin(t.Context(), "/chat_query/stream")
		require.NotNil(t, obs)
		obs.Event("sql_assistant")
		obs.Event("tools")
		obs.Fail("client_gone")
		obs.End()
		obs.End()
		body := scrape(t, service)
		assert.Contains(t, body, "sqlagent_stream_events_total")
		assert.Contains(t, body, `event_type="tools"`)
		assert.Contains(t, body, `reason="client_gone"`)
		assert.Contains(t, body, "sqlagent_stream_connection_duration_seconds")
	})
	t.Run("Should ignore calls when disabled", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), DefaultConfig())
		require.NoError(t, err)
		obs := service.Streaming().Begin(t.Context(), "/chat_query/stream")
		assert.Nil(t, obs)
		assert.NotPanics(t, func() {
			obs.Event("tools")
			obs.Fail("x")
			obs.End()
		})
	})
}

func TestNewMonitoringServiceWithFallback(t *testing.T) {
	t.Run("Should return a degraded service when config is invalid", func(t *testing.T) {
		service := NewMonitoringServiceWithFallback(t.Context(), &Config{Enabled: true, Path: "invalid-path"})
		assert.False(t, service.IsInitialized())
		assert.Error(t, service.InitializationError())
		assert.NotNil(t, service.Meter())
		assert.NoError(t, service.Shutdown(t.Context()))
	})
	t.Run("Should handle nil config", func(t *testing.T) {
		service := NewMonitoringServiceWithFallback(t.Context(), nil)
		assert.False(t, service.IsInitialized())
		assert.NoError(t, service.InitializationError())
	})
}
