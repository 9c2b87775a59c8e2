package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLoggerKeyCorrelationID is the log attribute key of the correlation ID.
const RequestLoggerKeyCorrelationID = "correlationId"

// CorrelationIDHeader is the response header carrying the correlation ID so clients can report it.
const CorrelationIDHeader = "X-Correlation-ID"

type ctxKey int

var correlationIDKey ctxKey

// CorrelationID tags every request with a new correlation ID. The ID is stored in the request
// context and returned in the CorrelationIDHeader.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationIDKey, id))
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

// GetCorrelationID returns the correlation ID set by [CorrelationID], if any.
func GetCorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok
}

// RequestLogger logs one line per handled request. Client errors are logged as warnings and
// server errors as errors, together with the errors the handlers reported.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.Group("request",
				slog.String("method", c.Request.Method),
				slog.String("route", c.FullPath()),
				slog.String("path", c.Request.URL.Path),
				slog.String("query", c.Request.URL.RawQuery),
				slog.String("ip", c.ClientIP()),
				slog.String("userAgent", c.Request.UserAgent()),
			),
			slog.Group("response",
				slog.Int("status", status),
				slog.Duration("latency", latency),
			),
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		if level != slog.LevelInfo {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		logger.LogAttrs(c.Request.Context(), level, "Processed HTTP request", attrs...)
	}
}
