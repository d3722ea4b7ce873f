package httpserver

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// RoleHeader carries the display role decided by the fronting auth layer.
	RoleHeader  = "X-Honeywatch-Role"
	DefaultRole = "viewer"

	roleKey = "honeywatch.role"
)

// roleMiddleware records the caller's display role. The role is never used
// for access decisions.
func roleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.TrimSpace(c.GetHeader(RoleHeader))
		if role == "" {
			role = DefaultRole
		}
		c.Set(roleKey, role)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
