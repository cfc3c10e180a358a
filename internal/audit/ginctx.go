package audit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

func InjectTrailMiddleware(t *Trail) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t != nil && c.Request != nil {
			c.Request = c.Request.WithContext(WithTrail(c.Request.Context(), t))
		}
		c.Next()
	}
}

func TrailFromGin(c *gin.Context) *Trail {
	if c == nil || c.Request == nil {
		return nil
	}
	return TrailFromContext(c.Request.Context())
}

// RecordBestEffort is for handlers that want a named audit entry beyond the
// generic write-audit middleware. Failures are swallowed.
func RecordBestEffort(c *gin.Context, action, actor string, details map[string]any) {
	t := TrailFromGin(c)
	if t == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = t.Record(ctx, Entry{
		Action:  action,
		Level:   "info",
		Actor:   actor,
		Details: details,
	})
}
