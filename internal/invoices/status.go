package invoices

import "time"

const (
	StatusOpen          = "open"
	StatusClosed        = "closed"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusOverdue       = "overdue"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusClosed, StatusPartiallyPaid, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// DeriveStatus computes the invoice status on today (date part only).
// Paid wins over everything; an unpaid balance after the due date is
// overdue even when partially paid.
func DeriveStatus(inv Invoice, today time.Time) string {
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	closed := !day.Before(inv.ClosingDate)
	remaining := inv.Total - inv.PaidAmount

	switch {
	case inv.Total > 0 && remaining <= 0:
		return StatusPaid
	case inv.Total == 0 && closed && inv.PaidAt != nil:
		return StatusPaid
	case remaining > 0 && day.After(inv.DueDate):
		return StatusOverdue
	case inv.PaidAmount > 0 && remaining > 0:
		return StatusPartiallyPaid
	case closed:
		return StatusClosed
	}
	return StatusOpen
}
