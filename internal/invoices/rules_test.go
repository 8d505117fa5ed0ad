package invoices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/cards"
)

func amt(v int64) *int64 { return &v }

func TestCheckPurchase(t *testing.T) {
	cases := []struct {
		name   string
		card   cards.Card
		amount int64
		want   error
	}{
		{"within limit", cards.Card{Limit: 100000, Available: 40000}, 40000, nil},
		{"above available", cards.Card{Limit: 100000, Available: 40000}, 40001, ErrLimitExceeded},
		{"nothing available", cards.Card{Limit: 100000, Available: 0}, 1, ErrLimitExceeded},
		{"zero limit is unlimited", cards.Card{Limit: 0, Available: 0}, 9_000_000, nil},
		{"archived card", cards.Card{Limit: 100000, Available: 100000, Archived: true}, 100, ErrCardArchived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, checkPurchase(tc.card, tc.amount), tc.want)
		})
	}
}

func TestPayAmount(t *testing.T) {
	inv := Invoice{Total: 100000, PaidAmount: 30000}
	inv.refresh(date(2024, 3, 8))
	require.Equal(t, int64(70000), inv.Remaining)

	paid := Invoice{Total: 100000, PaidAmount: 100000}
	paid.refresh(date(2024, 3, 8))

	cases := []struct {
		name      string
		inv       Invoice
		requested *int64
		want      int64
		err       error
	}{
		{"defaults to remaining", inv, nil, 70000, nil},
		{"partial", inv, amt(20000), 20000, nil},
		{"exactly remaining", inv, amt(70000), 70000, nil},
		{"more than remaining", inv, amt(70001), 0, ErrInvalidAmount},
		{"zero", inv, amt(0), 0, ErrInvalidAmount},
		{"negative", inv, amt(-5), 0, ErrInvalidAmount},
		{"already paid", paid, nil, 0, ErrAlreadyPaid},
		{"already paid with amount", paid, amt(1), 0, ErrAlreadyPaid},
		{"empty invoice", Invoice{Status: StatusOpen}, nil, 0, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := payAmount(tc.inv, tc.requested)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyPayment(t *testing.T) {
	inv := Invoice{Total: 100000, PaidAmount: 30000}
	on := date(2024, 3, 10)

	partial := applyPayment(inv, 20000, on)
	assert.Equal(t, int64(50000), partial.PaidAmount)
	assert.Nil(t, partial.PaidAt)

	full := applyPayment(inv, 70000, on)
	assert.Equal(t, int64(100000), full.PaidAmount)
	require.NotNil(t, full.PaidAt)
	assert.Equal(t, on, *full.PaidAt, "paid_at is the payment date, not the time it was recorded")

	full.refresh(date(2024, 3, 20))
	assert.Equal(t, StatusPaid, full.Status)
	assert.Zero(t, full.Remaining)

	assert.Equal(t, int64(30000), inv.PaidAmount, "input is not mutated")
}

func TestRevertPayment(t *testing.T) {
	paidAt := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	inv := Invoice{Total: 100000, PaidAmount: 100000, PaidAt: &paidAt}

	back := revertPayment(inv, 40000)
	assert.Equal(t, int64(60000), back.PaidAmount)
	assert.Nil(t, back.PaidAt)
	back.refresh(date(2024, 3, 11))
	assert.Equal(t, StatusPartiallyPaid, back.Status)
	assert.Equal(t, int64(40000), back.Remaining)

	all := revertPayment(inv, 100000)
	assert.Zero(t, all.PaidAmount)
	all.refresh(date(2024, 3, 20))
	assert.Equal(t, StatusOverdue, all.Status)

	// pay then undo lands where it started
	start := Invoice{Total: 100000, PaidAmount: 25000}
	round := revertPayment(applyPayment(start, 75000, paidAt), 75000)
	assert.Equal(t, start.PaidAmount, round.PaidAmount)
	assert.Nil(t, round.PaidAt)
}

func TestSweepChange(t *testing.T) {
	base := Invoice{
		ID:          "inv-1",
		UserID:      "user-1",
		CardName:    "Nubank",
		Reference:   "2024-03",
		ClosingDate: date(2024, 3, 5),
		DueDate:     date(2024, 3, 12),
		Total:       100000,
		PaidAmount:  30000,
	}

	closed := base
	closed.Status = StatusClosed
	ch, ok := sweepChange(closed, date(2024, 3, 13))
	require.True(t, ok)
	assert.Equal(t, StatusClosed, ch.From)
	assert.Equal(t, StatusOverdue, ch.To)
	assert.Equal(t, int64(70000), ch.Remaining)
	assert.Equal(t, "inv-1", ch.InvoiceID)
	assert.Equal(t, "user-1", ch.UserID)

	partial := base
	partial.Status = StatusPartiallyPaid
	_, ok = sweepChange(partial, date(2024, 3, 8))
	assert.False(t, ok, "unchanged status is skipped")

	open := base
	open.PaidAmount = 0
	open.Status = StatusOpen
	ch, ok = sweepChange(open, date(2024, 3, 5))
	require.True(t, ok)
	assert.Equal(t, StatusOpen, ch.From)
	assert.Equal(t, StatusClosed, ch.To)
}
