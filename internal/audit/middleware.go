package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/auth"
)

// WriteAuditMiddleware records every API write (non-GET under /api/) after
// it completes, with the authenticated principal as the actor.
func WriteAuditMiddleware(t *Trail, logger *zap.Logger) gin.HandlerFunc {
	if t == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := strings.ToUpper(c.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		actor := ""
		if principal, ok := auth.PrincipalFrom(c); ok {
			actor = principal.Address
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := t.Record(ctx, Entry{
			Action: "api_write",
			Level:  LevelFromStatus(status),
			Actor:  actor,
			Details: map[string]any{
				"method":   method,
				"path":     path,
				"status":   status,
				"duration": time.Since(start).String(),
			},
		})
		if err != nil && logger != nil {
			logger.Debug("audit record failed", zap.Error(err))
		}
	}
}
