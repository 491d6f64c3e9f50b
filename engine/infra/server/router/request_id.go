package router

import (
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID propagates or assigns a request id and binds it to the request
// logger.
func RequestID(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, id)
		ctx := logger.ContextWithLogger(c.Request.Context(), log.With("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
