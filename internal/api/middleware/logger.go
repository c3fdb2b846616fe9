package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/narrator/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// Logger injects a request-scoped logger and logs each completed request.
// An incoming X-Request-ID is kept; otherwise one is generated.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logger.SetComponent(logger.SetRequestID(c.Request.Context(), requestID), "api")
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", logger.FromContext(ctx))
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.With(logger.Fields{
			logger.FieldStatus: c.Writer.Status(),
			logger.FieldSize:   c.Writer.Size(),
		}).WithSince(start).Info(ctx, "%s %s", c.Request.Method, path)
	}
}

// GetLogger returns the request logger, falling back to the context one.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
