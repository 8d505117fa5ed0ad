package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionInvoicePay     = "invoice.pay"
	ActionInvoiceUndo    = "invoice.undo_payment"
	ActionInvoiceArchive = "invoice.archive"
	ActionPurchase       = "card.purchase"
	ActionPurchaseDelete = "card.purchase_delete"
	ActionTransfer       = "account.transfer"
	ActionTransferUndo   = "account.transfer_delete"
	ActionCSVImport      = "transactions.import"
)

type Entry struct {
	UserID     *string
	Action     string
	EntityType string
	EntityID   *string
	IP         *string
	UserAgent  *string
	Metadata   []byte
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type Logger struct {
	Pool *pgxpool.Pool
}

func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{Pool: pool}
}

// Record inserts the entry into audit_logs.
func (l *Logger) Record(ctx context.Context, e Entry) error {
	if l == nil || l.Pool == nil {
		return nil
	}

	var metadata interface{}
	if len(e.Metadata) > 0 {
		metadata = json.RawMessage(e.Metadata)
	}

	_, err := l.Pool.Exec(ctx, `
INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip, user_agent, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, e.UserID, e.Action, e.EntityType, e.EntityID, e.IP, e.UserAgent, metadata)

	return err
}

// FromRequest builds an entry carrying the caller's ip and user agent.
func FromRequest(c *fiber.Ctx, userID, action, entityType, entityID string, meta any) Entry {
	e := Entry{
		UserID:     optional(userID),
		Action:     action,
		EntityType: entityType,
		EntityID:   optional(entityID),
		IP:         optional(c.IP()),
		UserAgent:  optional(c.Get(fiber.HeaderUserAgent)),
	}
	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			e.Metadata = raw
		}
	}
	return e
}

// Write records e and only logs failures; an audit miss never fails the
// request that already committed.
func Write(ctx context.Context, r Recorder, logger *log.Logger, e Entry) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, e); err != nil && logger != nil {
		logger.Warn("audit write failed", "action", e.Action, "error", err)
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
