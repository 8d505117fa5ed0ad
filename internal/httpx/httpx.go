// Package httpx holds the request parsing and error rendering shared by the
// fiber handlers.
package httpx

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"

	// MaxRangeDays bounds the span Range accepts.
	MaxRangeDays = 366
)

// ErrorHandler renders every error as {"error": message}. Anything that is
// not a *fiber.Error becomes a 500 and is logged.
func ErrorHandler(logger *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		} else if logger != nil {
			logger.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

// NewApp returns a fiber app with the shared error handler. Used by
// cmd/api and by handler tests.
func NewApp(logger *log.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logger),
	})
}

// IDParam reads a UUID route param; malformed ids are reported as 404 so
// they look the same as ids that belong to someone else.
func IDParam(c *fiber.Ctx, name string) (string, error) {
	raw := strings.TrimSpace(c.Params(name))
	if _, err := uuid.Parse(raw); err != nil {
		return "", fiber.NewError(fiber.StatusNotFound, "not found")
	}
	return raw, nil
}

// OptionalID validates an optional UUID field from a body or query.
func OptionalID(raw *string, field string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" must be a valid id")
	}
	return &v, nil
}

func ParseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, field+" must be YYYY-MM-DD")
	}
	return t, nil
}

// DateOrToday parses raw, defaulting to today's date (UTC) when empty.
func DateOrToday(raw, field string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(raw, field)
}

// Month parses YYYY-MM, defaulting to the month of now.
func Month(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, _ := now.UTC().Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(MonthLayout, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "month must be YYYY-MM")
	}
	return t, nil
}

// Range reads from/to query params; both default to the last 30 days.
// Spans longer than MaxRangeDays are rejected.
func Range(c *fiber.Ctx, now time.Time) (time.Time, time.Time, error) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		end := now.UTC()
		start := end.AddDate(0, 0, -29)
		from = start.Format(DateLayout)
		to = end.Format(DateLayout)
	}

	start, err := ParseDate(from, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(to, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "range must not exceed one year")
	}
	return start, end, nil
}

// Limit reads ?limit, clamping to [1, max] with def when absent or invalid.
func Limit(c *fiber.Ctx, def, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
