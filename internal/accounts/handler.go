package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/audit"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
)

type Store interface {
	List(ctx context.Context, userID string, includeArchived bool) ([]Account, error)
	Get(ctx context.Context, userID, id string) (Account, error)
	Create(ctx context.Context, userID string, req CreateRequest) (Account, error)
	Update(ctx context.Context, userID, id string, req UpdateRequest) (Account, error)
	Delete(ctx context.Context, userID, id string) error
	Transfer(ctx context.Context, userID string, req TransferRequest, date time.Time) (Transfer, error)
	DeleteTransfer(ctx context.Context, userID, transferID string) error
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

	items, err := h.Store.List(auth.Context(c), userID, c.QueryBool("include_archived", false))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list accounts")
	}

	var total int64
	for _, a := range items {
		if !a.Archived {
			total += a.Balance
		}
	}
	return c.JSON(fiber.Map{"items": items, "total_balance": total})
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

	acc, err := h.Store.Get(auth.Context(c), userID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(acc)
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
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.Type == "" {
		req.Type = "checking"
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name required")
	}
	if !validTypes[req.Type] {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account type")
	}

	acc, err := h.Store.Create(auth.Context(c), userID, req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(acc)
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
	if req.Type != nil {
		typ := strings.ToLower(strings.TrimSpace(*req.Type))
		if !validTypes[typ] {
			return fiber.NewError(fiber.StatusBadRequest, "invalid account type")
		}
		req.Type = &typ
	}

	acc, err := h.Store.Update(auth.Context(c), userID, id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(acc)
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

func (h *Handler) Transfer(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	from, err := httpx.OptionalID(&req.FromAccountID, "from_account_id")
	if err != nil {
		return err
	}
	to, err := httpx.OptionalID(&req.ToAccountID, "to_account_id")
	if err != nil {
		return err
	}
	if from == nil || to == nil {
		return fiber.NewError(fiber.StatusBadRequest, "from_account_id and to_account_id required")
	}
	req.FromAccountID, req.ToAccountID = *from, *to
	if req.FromAccountID == req.ToAccountID {
		return fiber.NewError(fiber.StatusBadRequest, ErrSameAccount.Error())
	}
	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidAmount.Error())
	}
	date, err := httpx.DateOrToday(req.Date, "date", h.Now())
	if err != nil {
		return err
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		req.Description = "Transferência"
	}

	ctx := auth.Context(c)
	tr, err := h.Store.Transfer(ctx, userID, req, date)
	if err != nil {
		return mapError(err)
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionTransfer, "transfer", tr.TransferID, fiber.Map{
		"from":   tr.FromAccountID,
		"to":     tr.ToAccountID,
		"amount": tr.Amount,
	}))
	return c.Status(fiber.StatusCreated).JSON(tr)
}

func (h *Handler) DeleteTransfer(c *fiber.Ctx) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := httpx.IDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := auth.Context(c)
	if err := h.Store.DeleteTransfer(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "transfer not found")
		}
		return mapError(err)
	}

	audit.Write(ctx, h.Audit, h.Log, audit.FromRequest(c, userID, audit.ActionTransferUndo, "transfer", id, nil))
	return c.SendStatus(fiber.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "account not found")
	case errors.Is(err, ErrInUse):
		return fiber.NewError(fiber.StatusConflict, "account has transactions; archive it instead")
	case errors.Is(err, ErrArchived):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "account is archived")
	case errors.Is(err, ErrSameAccount), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "account operation failed")
}
