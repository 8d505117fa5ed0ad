package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

// New builds the process logger. Unknown levels fall back to info.
func New(w io.Writer, level, format string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}

	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}
	if strings.EqualFold(format, "json") {
		opts.Formatter = log.JSONFormatter
	}

	return log.NewWithOptions(w, opts)
}

// Discard is handy for tests and for components constructed without a logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// RequestLogger logs one line per request once the handler chain returns.
func RequestLogger(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		kv := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			kv = append(kv, "user_id", uid)
		}

		switch {
		case status >= 500:
			logger.Error("request", append(kv, "error", err)...)
		case status >= 400:
			logger.Warn("request", kv...)
		default:
			logger.Info("request", kv...)
		}
		return err
	}
}
