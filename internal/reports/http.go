package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Opener resolves a download token.
type Opener interface {
	Open(ctx context.Context, token string) ([]byte, string, error)
}

// DownloadHandler serves /r/:token without authentication; the token is
// the credential.
func DownloadHandler(links Opener) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Params("token"))
		if token == "" || len(token) > 128 {
			return fiber.ErrNotFound
		}

		data, kind, err := links.Open(c.UserContext(), token)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return fiber.ErrNotFound
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load document")
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, kind))
		return c.Send(data)
	}
}
