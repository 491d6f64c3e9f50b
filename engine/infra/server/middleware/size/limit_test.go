package size

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodySizeLimiter(limit))
	r.POST("/direct_query", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestBodySizeLimiter(t *testing.T) {
	t.Run("Should pass bodies within the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(16).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/direct_query", strings.NewReader("SELECT 1")))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SELECT 1", w.Body.String())
	})
	t.Run("Should refuse a declared oversized body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/direct_query", strings.NewReader(strings.Repeat("x", 32)))
		newRouter(16).ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "request body exceeds 16 bytes")
	})
	t.Run("Should stop reads past the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/direct_query", strings.NewReader(strings.Repeat("x", 32)))
		req.ContentLength = -1
		newRouter(16).ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
	t.Run("Should not limit when disabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(0).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/direct_query", strings.NewReader(strings.Repeat("x", 32))))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
