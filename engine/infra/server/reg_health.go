package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	healthTimeout  = 2 * time.Second
)

// CreateHealthHandler reports liveness plus database and redis reachability.
//
//	GET /healthz
func CreateHealthHandler(server *Server, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		status := statusOK
		components := gin.H{}
		if server != nil && server.store != nil {
			components["database"] = componentHealth(ctx, server.store.HealthCheck, &status)
		}
		if server != nil && server.redis != nil {
			components["redis"] = componentHealth(ctx, server.redis.HealthCheck, &status)
		}
		code := http.StatusOK
		if status != statusOK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"version":    version,
			"components": components,
		})
	}
}

func componentHealth(ctx context.Context, check func(context.Context) error, status *string) gin.H {
	if err := check(ctx); err != nil {
		*status = statusDegraded
		return gin.H{"healthy": false, "error": err.Error()}
	}
	return gin.H{"healthy": true}
}
