package cards

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID string, includeArchived bool) ([]Card, error)
	Get(ctx context.Context, userID, id string) (Card, error)
	Create(ctx context.Context, userID string, req CreateRequest) (Card, error)
	Update(ctx context.Context, userID, id string, req UpdateRequest) (Card, error)
	Delete(ctx context.Context, userID, id string) error
}

type Handler struct {
	Store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	items, err := h.Store.List(auth.Context(c), userID, c.QueryBool("include_archived", false))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list cards")
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	card, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(card)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name required")
	}
	if req.Limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	if !validDay(req.ClosingDay) || !validDay(req.DueDay) {
		return fiber.NewError(fiber.StatusBadRequest, "closing_day and due_day must be between 1 and 31")
	}
	if req.DefaultAccountID, err = httpx.OptionalID(req.DefaultAccountID, "default_account_id"); err != nil {
		return err
	}

	card, err := h.Store.Create(auth.Context(c), userID, req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

func (h *Handler) Update(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		req.Name = &name
	}
	if req.Limit != nil && *req.Limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	if (req.ClosingDay != nil && !validDay(*req.ClosingDay)) || (req.DueDay != nil && !validDay(*req.DueDay)) {
		return fiber.NewError(fiber.StatusBadRequest, "closing_day and due_day must be between 1 and 31")
	}
	if req.DefaultAccountID, err = httpx.OptionalID(req.DefaultAccountID, "default_account_id"); err != nil {
		return err
	}

	card, err := h.Store.Update(auth.Context(c), userID, id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(card)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.Store.Delete(auth.Context(c), userID, id); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "card not found")
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInUse):
		return fiber.NewError(fiber.StatusConflict, "card has purchases; archive it instead")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "card operation failed")
}
