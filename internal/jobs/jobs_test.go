package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/invoices"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
	"github.com/lucasgomesc1993/financas-api/internal/notify"
)

type sweeperFunc func(ctx context.Context, today time.Time) ([]invoices.StatusChange, error)

func (f sweeperFunc) SweepStatuses(ctx context.Context, today time.Time) ([]invoices.StatusChange, error) {
	return f(ctx, today)
}

type purgerFunc func(ctx context.Context) (int64, error)

func (f purgerFunc) Purge(ctx context.Context) (int64, error) { return f(ctx) }

type publisherFunc func(ctx context.Context, e notify.Event) error

func (f publisherFunc) Publish(ctx context.Context, e notify.Event) error { return f(ctx, e) }

func TestSweep_PublishesOnlyOverdue(t *testing.T) {
	var events []notify.Event
	purged := false
	s := &Sweep{
		Invoices: sweeperFunc(func(ctx context.Context, today time.Time) ([]invoices.StatusChange, error) {
			assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), today)
			return []invoices.StatusChange{
				{InvoiceID: "a", From: invoices.StatusOpen, To: invoices.StatusClosed},
				{InvoiceID: "b", From: invoices.StatusClosed, To: invoices.StatusOverdue, Remaining: 5000,
					DueDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
			}, nil
		}),
		Links: purgerFunc(func(ctx context.Context) (int64, error) {
			purged = true
			return 2, nil
		}),
		Events: publisherFunc(func(ctx context.Context, e notify.Event) error {
			events = append(events, e)
			return errors.New("queue down")
		}),
		Log: logging.Discard(),
		Now: func() time.Time { return time.Date(2024, 3, 13, 2, 0, 0, 0, time.UTC) },
	}

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventInvoiceOverdue, events[0].Type)
	assert.Equal(t, "b", events[0].InvoiceID)
	assert.Equal(t, int64(5000), events[0].Amount)
	assert.Equal(t, "2024-03-12", events[0].DueDate)
	assert.True(t, purged)
}

func TestSweep_StoreError(t *testing.T) {
	s := &Sweep{
		Invoices: sweeperFunc(func(ctx context.Context, today time.Time) ([]invoices.StatusChange, error) {
			return nil, errors.New("db down")
		}),
		Log: logging.Discard(),
		Now: time.Now,
	}
	assert.Error(t, s.Run(context.Background()))
}

func TestWorker_StartStop(t *testing.T) {
	var runs atomic.Int32
	w := &Worker{
		Name: "tick",
		Log:  logging.Discard(),
		Handler: Every(5*time.Millisecond, logging.Discard(), func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}),
	}

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	assert.True(t, w.IsAlive())

	w.Stop()
	assert.False(t, w.IsAlive())
	w.Stop()
}

func TestWorker_RecoversPanic(t *testing.T) {
	panicked := make(chan any, 1)
	w := &Worker{
		Name:    "boom",
		Log:     logging.Discard(),
		Handler: func(ctx context.Context) error { panic("bad") },
		OnPanic: func(r any) { panicked <- r },
	}

	w.Start(context.Background())
	select {
	case r := <-panicked:
		assert.Equal(t, "bad", r)
	case <-time.After(time.Second):
		t.Fatal("panic not reported")
	}
	w.Stop()
	assert.False(t, w.IsAlive())
}
