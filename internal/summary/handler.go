package summary

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	Get(ctx context.Context, userID string, month, today time.Time) (Summary, error)
}

type Handler struct {
	Store Store
	Now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store, Now: time.Now}
}

func (h *Handler) Get(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	now := h.Now().UTC()
	month, err := httpx.Month(c.Query("month"), now)
	if err != nil {
		return err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	s, err := h.Store.Get(auth.Context(c), userID, month, today)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build summary")
	}
	return c.JSON(s)
}
