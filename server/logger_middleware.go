package main

import (
	"time"

	"github.com/ctolnik/work-eye/zapctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// loggerMiddleware adds a zap logger carrying the request id to the request context
func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := zapctx.WithLogger(c.Request.Context(), logger.With(zap.String("request_id", requestID)))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		zapctx.Debug(ctx, "Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
