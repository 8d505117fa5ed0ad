package transactions

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/audit"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID string, f Filter) ([]Transaction, error)
	Get(ctx context.Context, userID, id string) (Transaction, error)
	Create(ctx context.Context, userID string, in Input) (Transaction, error)
	Update(ctx context.Context, userID, id string, p Patch) (Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	SetPaid(ctx context.Context, userID, id string, paid bool) (Transaction, error)
	Import(ctx context.Context, userID, accountID string, rows []ImportRow) (int, error)
}

type Handler struct {
	Store Store
	Audit audit.Recorder
	Log   *log.Logger
	Now   func() time.Time
}

func NewHandler(store Store, recorder audit.Recorder, logger *log.Logger) *Handler {
	return &Handler{Store: store, Audit: recorder, Log: logger, Now: time.Now}
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	f, err := parseFilter(c, 100, 500)
	if err != nil {
		return err
	}

	items, err := h.Store.List(auth.Context(c), userID, f)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list transactions")
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

	t, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(t)
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
	in, err := h.validateCreate(req)
	if err != nil {
		return err
	}

	t, err := h.Store.Create(auth.Context(c), userID, in)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) validateCreate(req CreateRequest) (Input, error) {
	var in Input

	if req.CardID != nil && strings.TrimSpace(*req.CardID) != "" {
		return in, fiber.NewError(fiber.StatusBadRequest, "card purchases are created with POST /api/cards/:id/purchases")
	}
	accountID, err := httpx.OptionalID(req.AccountID, "account_id")
	if err != nil {
		return in, err
	}
	if accountID == nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "account_id required")
	}
	in.AccountID = *accountID

	in.Type = normalizeType(req.Type)
	if in.Type == "" {
		return in, fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}
	if req.Amount <= 0 {
		return in, fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}
	in.Amount = req.Amount

	in.Description = strings.TrimSpace(req.Description)
	if in.Description == "" {
		return in, fiber.NewError(fiber.StatusBadRequest, "description required")
	}

	if in.Date, err = httpx.DateOrToday(req.Date, "date", h.Now()); err != nil {
		return in, err
	}
	if in.CategoryID, err = httpx.OptionalID(req.CategoryID, "category_id"); err != nil {
		return in, err
	}

	in.Paid = true
	if req.Paid != nil {
		in.Paid = *req.Paid
	}
	in.Notes = strings.TrimSpace(req.Notes)
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
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	p, err := validatePatch(req)
	if err != nil {
		return err
	}

	t, err := h.Store.Update(auth.Context(c), userID, id, p)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(t)
}

func validatePatch(req UpdateRequest) (Patch, error) {
	var p Patch
	var err error

	if req.Type != nil {
		typ := normalizeType(*req.Type)
		if typ == "" {
			return p, fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
		}
		p.Type = &typ
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return p, fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
		}
		p.Amount = req.Amount
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			return p, fiber.NewError(fiber.StatusBadRequest, "description required")
		}
		p.Description = &d
	}
	if req.Date != nil {
		d, err := httpx.ParseDate(*req.Date, "date")
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if p.AccountID, err = httpx.OptionalID(req.AccountID, "account_id"); err != nil {
		return p, err
	}
	if p.CategoryID, err = httpx.OptionalID(req.CategoryID, "category_id"); err != nil {
		return p, err
	}
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		p.Notes = &n
	}
	p.Paid = req.Paid
	return p, nil
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

type paidRequest struct {
	Paid *bool `json:"paid"`
}

func (h *Handler) SetPaid(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	var req paidRequest
	if err := c.BodyParser(&req); err != nil || req.Paid == nil {
		return fiber.NewError(fiber.StatusBadRequest, "paid required")
	}

	t, err := h.Store.SetPaid(auth.Context(c), userID, id, *req.Paid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(t)
}

func (h *Handler) ExportCSV(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	f, err := parseFilter(c, 10000, 10000)
	if err != nil {
		return err
	}

	items, err := h.Store.List(auth.Context(c), userID, f)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list transactions")
	}
	out, err := EncodeCSV(items)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to encode csv")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transacoes.csv"`)
	return c.Send(out)
}

// ImportCSV accepts the file either as multipart field "file" or as the raw
// request body. account_id is a query param.
func (h *Handler) ImportCSV(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	raw := c.Query("account_id")
	accountID, err := httpx.OptionalID(&raw, "account_id")
	if err != nil {
		return err
	}
	if accountID == nil {
		return fiber.NewError(fiber.StatusBadRequest, "account_id required")
	}

	data, err := readUpload(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read csv file")
	}

	rows, err := DecodeCSV(data)
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid csv", "rows": ie.Rows})
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := auth.Context(c)
	n, err := h.Store.Import(ctx, userID, *accountID, rows)
	if err != nil {
		return mapError(err)
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionCSVImport, "account", *accountID, fiber.Map{"rows": n}))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imported": n})
}

func readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Body(), nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func parseFilter(c *fiber.Ctx, def, max int) (Filter, error) {
	f := Filter{
		Query: strings.TrimSpace(c.Query("q")),
		Limit: httpx.Limit(c, def, max),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := httpx.ParseDate(raw, "from")
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := httpx.ParseDate(raw, "to")
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
	}

	for field, dst := range map[string]**string{
		"account_id":  &f.AccountID,
		"card_id":     &f.CardID,
		"invoice_id":  &f.InvoiceID,
		"category_id": &f.CategoryID,
	} {
		raw := c.Query(field)
		id, err := httpx.OptionalID(&raw, field)
		if err != nil {
			return f, err
		}
		*dst = id
	}

	if raw := strings.ToLower(strings.TrimSpace(c.Query("type"))); raw != "" {
		if raw != TypeTransfer && normalizeType(raw) == "" {
			return f, fiber.NewError(fiber.StatusBadRequest, "type must be income, expense or transfer")
		}
		f.Type = raw
		if raw != TypeTransfer {
			f.Type = normalizeType(raw)
		}
	}

	if raw := c.Query("paid"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "paid must be true or false")
		}
		f.Paid = &b
	}
	return f, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	case errors.Is(err, ErrLocked):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCategoryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAccountArchived), errors.Is(err, ErrCategoryMismatch):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "transaction operation failed")
}
