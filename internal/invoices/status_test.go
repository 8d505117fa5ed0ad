package invoices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	base := Invoice{
		ClosingDate: date(2024, 3, 5),
		DueDate:     date(2024, 3, 12),
		Total:       100000,
	}
	paidAt := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	with := func(f func(*Invoice)) Invoice {
		inv := base
		f(&inv)
		return inv
	}

	cases := []struct {
		name  string
		inv   Invoice
		today time.Time
		want  string
	}{
		{"open before closing", base, date(2024, 3, 4), StatusOpen},
		{"closed on closing day", base, date(2024, 3, 5), StatusClosed},
		{"closed on due day", base, date(2024, 3, 12), StatusClosed},
		{"overdue the day after due", base, date(2024, 3, 13), StatusOverdue},
		{"time of day ignored", base, time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC), StatusClosed},
		{"partially paid", with(func(i *Invoice) { i.PaidAmount = 30000 }), date(2024, 3, 8), StatusPartiallyPaid},
		{"partially paid before closing", with(func(i *Invoice) { i.PaidAmount = 30000 }), date(2024, 3, 1), StatusPartiallyPaid},
		{"partially paid then overdue", with(func(i *Invoice) { i.PaidAmount = 30000 }), date(2024, 3, 20), StatusOverdue},
		{"paid", with(func(i *Invoice) { i.PaidAmount = 100000; i.PaidAt = &paidAt }), date(2024, 3, 20), StatusPaid},
		{"overpaid counts as paid", with(func(i *Invoice) { i.PaidAmount = 100001 }), date(2024, 3, 20), StatusPaid},
		{"empty invoice stays open", with(func(i *Invoice) { i.Total = 0 }), date(2024, 3, 1), StatusOpen},
		{"empty invoice never overdue", with(func(i *Invoice) { i.Total = 0 }), date(2024, 4, 1), StatusClosed},
		{"empty closed invoice with paid_at", with(func(i *Invoice) { i.Total = 0; i.PaidAt = &paidAt }), date(2024, 3, 6), StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.inv, tc.today))
		})
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusOverdue))
	assert.False(t, ValidStatus("late"))
}
