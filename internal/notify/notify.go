// Package notify publishes invoice lifecycle events for downstream
// consumers (reminder emails, push notifications).
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lucasgomesc1993/financas-api/internal/config"
)

const (
	EventInvoicePaid    = "invoice.paid"
	EventInvoiceOverdue = "invoice.overdue"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	InvoiceID  string    `json:"invoice_id"`
	CardName   string    `json:"card_name"`
	Reference  string    `json:"reference"`
	Amount     int64     `json:"amount"`
	DueDate    string    `json:"due_date"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher only logs events; used when no queue is configured.
type LogPublisher struct {
	Log *log.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	p.Log.Info("event", "type", e.Type, "user_id", e.UserID, "invoice_id", e.InvoiceID,
		"reference", e.Reference, "amount", e.Amount)
	return nil
}

// New returns a queue publisher when a queue service is configured.
func New(ctx context.Context, cfg config.QueueConfig, logger *log.Logger) (Publisher, error) {
	if cfg.ServiceURL == "" {
		return LogPublisher{Log: logger}, nil
	}
	return NewQueuePublisher(ctx, cfg.ServiceURL, cfg.Name, logger)
}

// encode renders e the way Azure Functions queue triggers expect it:
// base64 of the JSON document.
func encode(e Event) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
