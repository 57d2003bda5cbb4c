package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mittell/blogpost/utils"
)

// RequestLogger emits one structured log line per request through the shared
// zap logger.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path

		ctx.Next()

		if utils.Logger == nil {
			return
		}
		utils.Sugar.Infow("request",
			"method", ctx.Request.Method,
			"path", path,
			"status", ctx.Writer.Status(),
			"latency", time.Since(start).Seconds(),
			"ip", ctx.ClientIP(),
		)
	}
}
