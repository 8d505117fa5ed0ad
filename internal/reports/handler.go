package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	Categories(ctx context.Context, userID, typ string, from, to time.Time) ([]CategoryRow, error)
	Monthly(ctx context.Context, userID string, year int) ([]MonthRow, error)
	Cashflow(ctx context.Context, userID string, from, to time.Time) ([]DayPoint, error)
}

type Handler struct {
	Store Store
	Now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store, Now: time.Now}
}

func (h *Handler) Categories(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	from, to, err := httpx.Range(c, h.Now())
	if err != nil {
		return err
	}
	typ := strings.ToLower(strings.TrimSpace(c.Query("type", "expense")))
	if typ != "income" && typ != "expense" {
		return fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}

	rows, err := h.Store.Categories(auth.Context(c), userID, typ, from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build categories report")
	}
	var total int64
	for _, r := range rows {
		total += r.Total
	}
	return c.JSON(fiber.Map{
		"from":  from.Format(httpx.DateLayout),
		"to":    to.Format(httpx.DateLayout),
		"type":  typ,
		"total": total,
		"items": rows,
	})
}

func (h *Handler) Monthly(c *fiber.Ctx) error {
	userID, year, err := h.year(c)
	if err != nil {
		return err
	}
	rows, err := h.Store.Monthly(auth.Context(c), userID, year)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build monthly report")
	}
	return c.JSON(fiber.Map{"year": year, "months": rows})
}

func (h *Handler) MonthlyPDF(c *fiber.Ctx) error {
	userID, year, err := h.year(c)
	if err != nil {
		return err
	}
	rows, err := h.Store.Monthly(auth.Context(c), userID, year)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build monthly report")
	}

	data, err := MonthlyPDF(year, rows, h.Now())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render report")
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="relatorio-%d.pdf"`, year))
	return c.Send(data)
}

func (h *Handler) Cashflow(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	from, to, err := httpx.Range(c, h.Now())
	if err != nil {
		return err
	}

	days, err := h.Store.Cashflow(auth.Context(c), userID, from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build cashflow")
	}
	var income, expense int64
	for _, d := range days {
		income += d.Income
		expense += d.Expense
	}
	return c.JSON(fiber.Map{
		"from":          from.Format(httpx.DateLayout),
		"to":            to.Format(httpx.DateLayout),
		"total_income":  income,
		"total_expense": expense,
		"balance":       income - expense,
		"daily":         days,
	})
}

func (h *Handler) year(c *fiber.Ctx) (string, int, error) {
	userID, err := auth.UserID(c)
	if err != nil {
		return "", 0, err
	}
	raw := strings.TrimSpace(c.Query("year"))
	if raw == "" {
		return userID, h.Now().UTC().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1970 || year > 9999 {
		return "", 0, fiber.NewError(fiber.StatusBadRequest, "year must be YYYY")
	}
	return userID, year, nil
}
