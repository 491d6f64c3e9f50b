package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, flags map[string]any) *Server {
	t.Helper()
	base := map[string]any{
		"db-path":      ":memory:",
		"llm-provider": "mock",
		"llm-model":    "mock",
	}
	for k, v := range flags {
		base[k] = v
	}
	manager := config.NewManager(config.NewService())
	_, err := manager.Load(t.Context(), config.NewCLIProvider(base))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close(t.Context()) })
	srv, err := NewServer(config.ContextWithManager(t.Context(), manager))
	require.NoError(t, err)
	require.NoError(t, srv.Setup())
	t.Cleanup(srv.cleanup)
	return srv
}

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerSetup(t *testing.T) {
	t.Run("Should serve the table routes with seeded data", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv.Handler(), http.MethodGet, "/tables", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"success","tables":["products","suppliers"]}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
	t.Run("Should answer chat queries with the configured model", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv.Handler(), http.MethodPost, "/chat_query", `{"input_message":"tables?"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Based on the database: products, suppliers", body["relevant_answer"])
	})
	t.Run("Should report health with the database component", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := serve(srv.Handler(), http.MethodGet, "/healthz", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, body["version"])
		assert.Contains(t, body["components"], "database")
	})
	t.Run("Should expose prometheus metrics", func(t *testing.T) {
		srv := newTestServer(t, map[string]any{"monitoring": true})
		serve(srv.Handler(), http.MethodGet, "/tables", "", nil)
		w := serve(srv.Handler(), http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "sqlagent_http_requests_total")
	})
	t.Run("Should not mount metrics when monitoring is disabled", func(t *testing.T) {
		srv := newTestServer(t, map[string]any{"monitoring": false})
		w := serve(srv.Handler(), http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("Should limit requests per client when enabled", func(t *testing.T) {
		t.Setenv("RATELIMIT_LIMIT", "2")
		srv := newTestServer(t, map[string]any{"rate-limit": true})
		for range 2 {
			w := serve(srv.Handler(), http.MethodGet, "/tables", "", nil)
			require.Equal(t, http.StatusOK, w.Code)
		}
		w := serve(srv.Handler(), http.MethodGet, "/tables", "", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		w = serve(srv.Handler(), http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	newRouter := func(cfg config.CORSConfig) *gin.Engine {
		r := gin.New()
		r.Use(CORSMiddleware(cfg))
		r.GET("/tables", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	t.Run("Should echo the origin when any origin is allowed", func(t *testing.T) {
		r := newRouter(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})
		w := serve(r, http.MethodGet, "/tables", "", map[string]string{"Origin": "http://example.com"})
		assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
	t.Run("Should allow listed origins only", func(t *testing.T) {
		r := newRouter(config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})
		w := serve(r, http.MethodGet, "/tables", "", map[string]string{"Origin": "http://localhost:3000"})
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		w = serve(r, http.MethodGet, "/tables", "", map[string]string{"Origin": "http://evil.test"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("Should answer preflight requests", func(t *testing.T) {
		r := newRouter(config.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 600})
		w := serve(r, http.MethodOptions, "/tables", "", map[string]string{
			"Origin":                         "http://localhost:5173",
			"Access-Control-Request-Headers": "content-type",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestFriendlyHost(t *testing.T) {
	t.Run("Should map wildcard hosts to loopback", func(t *testing.T) {
		assert.Equal(t, hostLoopback, friendlyHost(hostAny))
		assert.Equal(t, hostLoopback, friendlyHost(""))
		assert.Equal(t, "example.com", friendlyHost("example.com"))
	})
}
