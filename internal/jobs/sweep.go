package jobs

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/invoices"
	"github.com/lucasgomesc1993/financas-api/internal/notify"
)

type InvoiceSweeper interface {
	SweepStatuses(ctx context.Context, today time.Time) ([]invoices.StatusChange, error)
}

type LinkPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Sweep persists derived invoice statuses, announces invoices that just
// became overdue and drops expired download links. Running it twice on the
// same day changes nothing the second time.
type Sweep struct {
	Invoices InvoiceSweeper
	Links    LinkPurger
	Events   notify.Publisher
	Log      *log.Logger
	Now      func() time.Time
}

func (s *Sweep) Run(ctx context.Context) error {
	now := s.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	changes, err := s.Invoices.SweepStatuses(ctx, today)
	if err != nil {
		return err
	}

	overdue := 0
	for _, ch := range changes {
		if ch.To != invoices.StatusOverdue {
			continue
		}
		overdue++
		err := s.Events.Publish(ctx, notify.Event{
			Type:       notify.EventInvoiceOverdue,
			UserID:     ch.UserID,
			InvoiceID:  ch.InvoiceID,
			CardName:   ch.CardName,
			Reference:  ch.Reference,
			Amount:     ch.Remaining,
			DueDate:    ch.DueDate.Format(httpx.DateLayout),
			OccurredAt: now,
		})
		if err != nil {
			s.Log.Warn("publish overdue event", "invoice_id", ch.InvoiceID, "error", err)
		}
	}

	var purged int64
	if s.Links != nil {
		if purged, err = s.Links.Purge(ctx); err != nil {
			s.Log.Warn("purge expired links", "error", err)
		}
	}

	s.Log.Info("invoice sweep", "changed", len(changes), "overdue", overdue, "links_purged", purged)
	return nil
}
