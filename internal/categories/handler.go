package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID, typ string) ([]Category, error)
	Create(ctx context.Context, userID string, req CreateRequest) (Category, error)
	Update(ctx context.Context, userID, id string, req UpdateRequest) (Category, error)
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

	typ := strings.ToLower(strings.TrimSpace(c.Query("type")))
	if typ != "" && normalizeType(typ) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}

	items, err := h.Store.List(auth.Context(c), userID, typ)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list categories")
	}
	return c.JSON(fiber.Map{"items": items})
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
	req.Type = normalizeType(strings.ToLower(strings.TrimSpace(req.Type)))
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name required")
	}
	if req.Type == "" {
		return fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}

	cat, err := h.Store.Create(auth.Context(c), userID, req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
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

	cat, err := h.Store.Update(auth.Context(c), userID, id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(cat)
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
		return fiber.NewError(fiber.StatusNotFound, "category not found")
	case errors.Is(err, ErrDuplicate):
		return fiber.NewError(fiber.StatusConflict, "category already exists")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "category operation failed")
}
