package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs HTTP requests in a structured format
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		logLevel := slog.LevelInfo
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		attrs := []any{
			slog.String("type", "req"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", statusCode),
			slog.Duration("duration", duration),
		}
		if subject := Subject(c); subject != "" {
			attrs = append(attrs, slog.String("subject", subject))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		slog.Log(c.Context(), logLevel, "Request handled", attrs...)

		return err
	}
}
