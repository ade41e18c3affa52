package log

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// validRequestID reports whether an inbound id is safe to echo and log.
func validRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}

// Middleware attaches a request-scoped logger, tagged with a request id, to
// every request and logs its completion. The level follows the status class.
func Middleware(logger *Logger) gin.HandlerFunc {
	httpLogger := logger.WithComponent(ComponentHTTP)
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := httpLogger.With(FieldRequestID, requestID)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		args := []any{
			FieldMethod, c.Request.Method,
			FieldPath, c.Request.URL.Path,
			FieldStatusCode, status,
			FieldDuration, time.Since(start).Milliseconds(),
			FieldClientIP, c.ClientIP(),
			FieldUserAgent, c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			args = append(args, FieldError, c.Errors.String())
		}
		reqLogger.Log(c.Request.Context(), level, "HTTP request completed", args...)
	}
}
