package server

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
)

const corsWildcard = "*"

// LoggerMiddleware logs HTTP request details.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		c.Next()
		log := logger.FromContext(c.Request.Context())
		fields := []any{
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", c.Writer.Status(),
			"body_size", c.Writer.Size(),
			"path", path,
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			fields = append(fields, "error", msg)
		}
		log.Info("Request completed", fields...)
	}
}

// CORSMiddleware enables CORS support with configurable origins. A "*" entry
// allows any origin; the request origin is echoed so credentials still work.
func CORSMiddleware(corsConfig config.CORSConfig) gin.HandlerFunc {
	allowAny := slices.Contains(corsConfig.AllowedOrigins, corsWildcard)
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowAny || slices.Contains(corsConfig.AllowedOrigins, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if corsConfig.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
			if reqHeaders := c.Request.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			} else {
				h.Set("Access-Control-Allow-Headers",
					"Content-Type, Content-Length, Accept-Encoding, Authorization, "+
						"Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID")
			}
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
			if corsConfig.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(corsConfig.MaxAge))
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
