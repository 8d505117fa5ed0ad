package invoices

import (
	"time"

	"github.com/lucasgomesc1993/financas-api/internal/cards"
)

// checkPurchase rejects purchases on archived cards and purchases above the
// available limit. A zero limit means the card has no limit.
func checkPurchase(card cards.Card, amount int64) error {
	if card.Archived {
		return ErrCardArchived
	}
	if card.Limit > 0 && amount > card.Available {
		return ErrLimitExceeded
	}
	return nil
}

// payAmount resolves the amount of a payment against inv. A nil request
// pays whatever is left.
func payAmount(inv Invoice, requested *int64) (int64, error) {
	if inv.Status == StatusPaid {
		return 0, ErrAlreadyPaid
	}
	amount := inv.Remaining
	if requested != nil {
		amount = *requested
	}
	if amount <= 0 || amount > inv.Remaining {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// applyPayment returns inv after a payment of amount made on date. The
// invoice is stamped paid on the payment date once nothing is left.
func applyPayment(inv Invoice, amount int64, date time.Time) Invoice {
	inv.PaidAmount += amount
	if inv.PaidAmount >= inv.Total && inv.PaidAt == nil {
		paidAt := date
		inv.PaidAt = &paidAt
	}
	return inv
}

// revertPayment returns inv with a payment of amount taken back. The paying
// account is credited by the same amount.
func revertPayment(inv Invoice, amount int64) Invoice {
	inv.PaidAmount -= amount
	if inv.PaidAmount < 0 {
		inv.PaidAmount = 0
	}
	if inv.PaidAmount < inv.Total {
		inv.PaidAt = nil
	}
	return inv
}

// sweepChange reports the status move of a stored invoice on today, if any.
// From carries the stored status so the update can be guarded on it.
func sweepChange(inv Invoice, today time.Time) (StatusChange, bool) {
	stored := inv.Status
	inv.refresh(today)
	if inv.Status == stored {
		return StatusChange{}, false
	}
	return StatusChange{
		InvoiceID: inv.ID,
		UserID:    inv.UserID,
		CardName:  inv.CardName,
		Reference: inv.Reference,
		Remaining: inv.Remaining,
		DueDate:   inv.DueDate,
		From:      stored,
		To:        inv.Status,
	}, true
}
