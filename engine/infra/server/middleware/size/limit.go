package size

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimiter caps request bodies at limit bytes. Requests announcing a
// larger Content-Length are refused up front; others fail on read past the
// limit. A limit <= 0 disables the check.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"detail": fmt.Sprintf("request body exceeds %d bytes", limit),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
