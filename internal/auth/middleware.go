package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localsKey = "user_id"

// Middleware rejects requests without a valid bearer token and stores the
// user id in the request locals. touch, when set, is called with every
// authenticated user id.
func Middleware(issuer *Issuer, touch func(userID string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := issuer.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(localsKey, userID)
		if touch != nil {
			touch(userID)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id or a 401 error.
func UserID(c *fiber.Ctx) (string, error) {
	if v, ok := c.Locals(localsKey).(string); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
}

// WithUser is used by tests and internal callers to seed the locals the
// middleware would set.
func WithUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsKey, userID)
		return c.Next()
	}
}

func Context(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
