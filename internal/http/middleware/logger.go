package middleware

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"activerecord/internal/logging"
)

// Logger logs each request as one JSON line on stdout, timestamps in UTC.
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter logs each request to w with the fields request_id, method, path,
// status and latency (milliseconds), plus trace_id when the request is traced.
// Timestamps are rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	logger := logging.New(w, loc, slog.LevelInfo)

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = errorStatus(err)
		}
		rid, _ := c.Locals(RequestIDLocalKey).(string)

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("request_id", rid),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
		}
		logger.LogAttrs(c.UserContext(), level, "http_request", attrs...)
		return err
	}
}
