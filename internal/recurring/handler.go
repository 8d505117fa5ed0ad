package recurring

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID string) ([]Recurring, error)
	Get(ctx context.Context, userID, id string) (Recurring, error)
	Create(ctx context.Context, userID string, in Input) (Recurring, error)
	SetActive(ctx context.Context, userID, id string, active bool) (Recurring, error)
	Delete(ctx context.Context, userID, id string) error
	Materialize(ctx context.Context, userID string, month time.Time) (int, error)
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
	items, err := h.Store.List(auth.Context(c), userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list recurring transactions")
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
	in, err := h.validate(req)
	if err != nil {
		return err
	}

	rec, err := h.Store.Create(auth.Context(c), userID, in)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (h *Handler) validate(req CreateRequest) (Input, error) {
	in := Input{
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		RRule:       NormalizeRule(req.RRule),
	}
	if in.Description == "" {
		return in, fiber.NewError(fiber.StatusBadRequest, "description required")
	}
	if in.Amount <= 0 {
		return in, fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}
	switch t := strings.ToLower(strings.TrimSpace(req.Type)); t {
	case "income", "receita":
		in.Type = "income"
	case "expense", "despesa":
		in.Type = "expense"
	default:
		return in, fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}

	accountID, err := httpx.OptionalID(&req.AccountID, "account_id")
	if err != nil {
		return in, err
	}
	if accountID == nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "account_id required")
	}
	in.AccountID = *accountID
	if in.CategoryID, err = httpx.OptionalID(req.CategoryID, "category_id"); err != nil {
		return in, err
	}

	if in.StartDate, err = httpx.DateOrToday(req.StartDate, "start_date", h.Now()); err != nil {
		return in, err
	}
	if strings.TrimSpace(req.EndDate) != "" {
		end, err := httpx.ParseDate(req.EndDate, "end_date")
		if err != nil {
			return in, err
		}
		if end.Before(in.StartDate) {
			return in, fiber.NewError(fiber.StatusBadRequest, "end_date must not be before start_date")
		}
		in.EndDate = &end
	}

	if _, err := Schedule(in.RRule, in.StartDate, in.EndDate); err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return in, nil
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
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return fiber.NewError(fiber.StatusBadRequest, "active required")
	}
	rec, err := h.Store.SetActive(auth.Context(c), userID, id, *req.Active)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(rec)
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

// Occurrences previews the dates a schedule produces in ?month.
func (h *Handler) Occurrences(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}
	month, err := httpx.Month(c.Query("month"), h.Now())
	if err != nil {
		return err
	}

	rec, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return mapError(err)
	}
	from, to := MonthBounds(month)
	dates, err := Occurrences(rec, from, to)
	if err != nil {
		return mapError(err)
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(httpx.DateLayout)
	}
	return c.JSON(fiber.Map{"month": month.Format(httpx.MonthLayout), "dates": out})
}

func (h *Handler) Materialize(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	month, err := httpx.Month(c.Query("month"), h.Now())
	if err != nil {
		return err
	}

	n, err := h.Store.Materialize(auth.Context(c), userID, month)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"month": month.Format(httpx.MonthLayout), "created": n})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "recurring transaction not found")
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCategoryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrCategoryMismatch), errors.Is(err, ErrInvalidRule):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "recurring operation failed")
}
