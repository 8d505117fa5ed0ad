package budgets

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID string, month time.Time) ([]Budget, error)
	Create(ctx context.Context, userID string, req CreateRequest) (Budget, error)
	Update(ctx context.Context, userID, id string, amount int64) (Budget, error)
	Delete(ctx context.Context, userID, id string) error
	CopyMonth(ctx context.Context, userID, from, to string) (int64, error)
}

type Handler struct {
	Store Store
	Now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store, Now: time.Now}
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	month, err := httpx.Month(c.Query("month"), h.Now())
	if err != nil {
		return err
	}

	items, err := h.Store.List(auth.Context(c), userID, month)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list budgets")
	}

	var planned, spent int64
	for _, b := range items {
		planned += b.Amount
		spent += b.Spent
	}
	return c.JSON(fiber.Map{
		"month":   month.Format(httpx.MonthLayout),
		"items":   items,
		"planned": planned,
		"spent":   spent,
	})
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
	catID, err := httpx.OptionalID(&req.CategoryID, "category_id")
	if err != nil {
		return err
	}
	if catID == nil {
		return fiber.NewError(fiber.StatusBadRequest, "category_id required")
	}
	req.CategoryID = *catID

	month, err := httpx.Month(req.Month, h.Now())
	if err != nil {
		return err
	}
	req.Month = month.Format(httpx.MonthLayout)
	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}

	b, err := h.Store.Create(auth.Context(c), userID, req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
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
	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}

	b, err := h.Store.Update(auth.Context(c), userID, id, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(b)
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

func (h *Handler) Copy(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req CopyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.From == "" || req.To == "" {
		return fiber.NewError(fiber.StatusBadRequest, "from and to required")
	}
	from, err := httpx.Month(req.From, h.Now())
	if err != nil {
		return err
	}
	to, err := httpx.Month(req.To, h.Now())
	if err != nil {
		return err
	}
	if from.Equal(to) {
		return fiber.NewError(fiber.StatusBadRequest, "from and to must differ")
	}

	n, err := h.Store.CopyMonth(auth.Context(c), userID, from.Format(httpx.MonthLayout), to.Format(httpx.MonthLayout))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to copy budgets")
	}
	return c.JSON(fiber.Map{"copied": n})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "budget not found")
	case errors.Is(err, ErrCategoryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrNotExpense):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "budget operation failed")
}
