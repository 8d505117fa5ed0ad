package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/audit"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/notify"
)

type Store interface {
	AddPurchase(ctx context.Context, userID, cardID string, p Purchase) (PurchaseResult, error)
	DeletePurchase(ctx context.Context, userID, purchaseID string) error
	ListByCard(ctx context.Context, userID, cardID string) ([]Invoice, error)
	List(ctx context.Context, userID, status string) ([]Invoice, error)
	Get(ctx context.Context, userID, id string) (Invoice, error)
	Pay(ctx context.Context, userID, id string, in PayInput) (Payment, Invoice, error)
	UndoPayment(ctx context.Context, userID, id, paymentID string) (Invoice, error)
}

// Archiver keeps a generated document and hands out a download token.
type Archiver interface {
	Archive(ctx context.Context, userID, kind string, data []byte) (token string, expiresAt time.Time, err error)
}

type Handler struct {
	Store    Store
	Archiver Archiver
	Events   notify.Publisher
	Audit    audit.Recorder
	Log      *log.Logger
	Now      func() time.Time
}

func NewHandler(store Store, archiver Archiver, events notify.Publisher, recorder audit.Recorder, logger *log.Logger) *Handler {
	return &Handler{Store: store, Archiver: archiver, Events: events, Audit: recorder, Log: logger, Now: time.Now}
}

func (h *Handler) AddPurchase(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	cardID, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	p, err := h.validatePurchase(req)
	if err != nil {
		return err
	}

	ctx := auth.Context(c)
	res, err := h.Store.AddPurchase(ctx, userID, cardID, p)
	if err != nil {
		return mapError(err)
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionPurchase, "card", cardID,
		fiber.Map{"purchase_id": res.PurchaseID, "amount": p.Amount, "installments": p.Installments}))
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) validatePurchase(req PurchaseRequest) (Purchase, error) {
	p := Purchase{
		Description:  strings.TrimSpace(req.Description),
		Amount:       req.Amount,
		Installments: req.Installments,
		Notes:        strings.TrimSpace(req.Notes),
	}
	if p.Description == "" {
		return p, fiber.NewError(fiber.StatusBadRequest, "description required")
	}
	if p.Amount <= 0 {
		return p, fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}
	if p.Installments == 0 {
		p.Installments = 1
	}
	if p.Installments < 1 || p.Installments > MaxInstallments {
		return p, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("installments must be between 1 and %d", MaxInstallments))
	}
	if p.Amount < int64(p.Installments) {
		return p, fiber.NewError(fiber.StatusBadRequest, "amount too small for that many installments")
	}

	var err error
	if p.Date, err = httpx.DateOrToday(req.Date, "date", h.Now()); err != nil {
		return p, err
	}
	if p.CategoryID, err = httpx.OptionalID(req.CategoryID, "category_id"); err != nil {
		return p, err
	}
	return p, nil
}

func (h *Handler) DeletePurchase(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := auth.Context(c)
	if err := h.Store.DeletePurchase(ctx, userID, id); err != nil {
		return mapError(err)
	}
	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionPurchaseDelete, "purchase", id, nil))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListByCard(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	cardID, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	items, err := h.Store.ListByCard(auth.Context(c), userID, cardID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && !ValidStatus(status) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}

	items, err := h.Store.List(auth.Context(c), userID, status)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list invoices")
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

	inv, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(inv)
}

func (h *Handler) Pay(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	var req PayRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}
	in := PayInput{Amount: req.Amount}
	accountID, err := httpx.OptionalID(&req.AccountID, "account_id")
	if err != nil {
		return err
	}
	if accountID != nil {
		in.AccountID = *accountID
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "amount must be greater than zero")
	}
	if in.Date, err = httpx.DateOrToday(req.Date, "date", h.Now()); err != nil {
		return err
	}

	ctx := auth.Context(c)
	pay, inv, err := h.Store.Pay(ctx, userID, id, in)
	if err != nil {
		return mapError(err)
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionInvoicePay, "invoice", id,
		fiber.Map{"payment_id": pay.ID, "account_id": pay.AccountID, "amount": pay.Amount}))
	if inv.Status == StatusPaid {
		h.publish(ctx, notify.EventInvoicePaid, inv)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": pay, "invoice": inv})
}

func (h *Handler) UndoPayment(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}
	paymentID, err := httpx.IDParam(c, "paymentId")
	if err != nil {
		return err
	}

	ctx := auth.Context(c)
	inv, err := h.Store.UndoPayment(ctx, userID, id, paymentID)
	if err != nil {
		return mapError(err)
	}
	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionInvoiceUndo, "invoice", id,
		fiber.Map{"payment_id": paymentID}))
	return c.JSON(inv)
}

func (h *Handler) StatementPDF(c *fiber.Ctx) error {
	inv, data, err := h.render(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="fatura-%s.pdf"`, inv.Reference))
	return c.Send(data)
}

// Archive stores the statement PDF and returns a download link valid for
// a limited time.
func (h *Handler) Archive(c *fiber.Ctx) error {
	inv, data, err := h.render(c)
	if err != nil {
		return err
	}
	userID, _ := auth.UserID(c)

	ctx := auth.Context(c)
	token, expires, err := h.Archiver.Archive(ctx, userID, "invoice", data)
	if err != nil {
		h.Log.Error("archive statement", "invoice_id", inv.ID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to archive statement")
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionInvoiceArchive, "invoice", inv.ID, nil))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url":        "/r/" + token,
		"expires_at": expires,
	})
}

func (h *Handler) render(c *fiber.Ctx) (Invoice, []byte, error) {
	userID, err := auth.UserID(c)
	if err != nil {
		return Invoice{}, nil, err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return Invoice{}, nil, err
	}

	inv, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return Invoice{}, nil, mapError(err)
	}
	data, err := StatementPDF(inv, h.Now())
	if err != nil {
		return Invoice{}, nil, fiber.NewError(fiber.StatusInternalServerError, "failed to render statement")
	}
	return inv, data, nil
}

func (h *Handler) publish(ctx context.Context, typ string, inv Invoice) {
	if h.Events == nil {
		return
	}
	err := h.Events.Publish(ctx, notify.Event{
		Type:       typ,
		UserID:     inv.UserID,
		InvoiceID:  inv.ID,
		CardName:   inv.CardName,
		Reference:  inv.Reference,
		Amount:     inv.PaidAmount,
		DueDate:    inv.DueDate.Format(httpx.DateLayout),
		OccurredAt: h.Now().UTC(),
	})
	if err != nil && h.Log != nil {
		h.Log.Warn("publish event failed", "type", typ, "invoice_id", inv.ID, "error", err)
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrPurchaseNotFound),
		errors.Is(err, ErrCardNotFound), errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrCategoryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrHasPayments):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrLimitExceeded), errors.Is(err, ErrCardArchived),
		errors.Is(err, ErrAccountArchived), errors.Is(err, ErrCategoryMismatch):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNoAccount):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "invoice operation failed")
}
