package admin

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const KeyHeader = "X-Admin-Key"

// RequireKey guards admin routes with a static key. An empty key closes
// the routes entirely.
func RequireKey(key string) fiber.Handler {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusServiceUnavailable, "admin key not configured")
		}
	}

	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get(KeyHeader))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
