package transactions

import (
	"errors"
	"strings"
	"time"
)

const (
	TypeIncome   = "income"
	TypeExpense  = "expense"
	TypeTransfer = "transfer"
)

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrLocked           = errors.New("transaction is managed by a transfer or an invoice")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountArchived  = errors.New("account is archived")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryMismatch = errors.New("category type does not match transaction type")
)

// SpendingFilter selects expense rows that count as spending for the user.
// Invoice payments are excluded because their card purchases are already
// counted by purchase date. Expects the transactions table aliased as t.
const SpendingFilter = `(t.type = 'expense' AND NOT (t.account_id IS NOT NULL AND t.invoice_id IS NOT NULL))`

type Transaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Paid         bool      `json:"paid"`
	AccountID    *string   `json:"account_id,omitempty"`
	CardID       *string   `json:"card_id,omitempty"`
	InvoiceID    *string   `json:"invoice_id,omitempty"`
	CategoryID   *string   `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Installment  *int16    `json:"installment,omitempty"`
	Installments *int16    `json:"installments,omitempty"`
	PurchaseID   *string   `json:"purchase_id,omitempty"`
	TransferID   *string   `json:"transfer_id,omitempty"`
	Direction    *string   `json:"direction,omitempty"`
	RecurringID  *string   `json:"recurring_id,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Locked reports whether the row belongs to a transfer, a card purchase or
// an invoice payment and must be changed through those operations.
func (t Transaction) Locked() bool {
	return t.TransferID != nil || t.CardID != nil || t.InvoiceID != nil
}

type Filter struct {
	From       *time.Time
	To         *time.Time
	AccountID  *string
	CardID     *string
	InvoiceID  *string
	CategoryID *string
	Type       string
	Paid       *bool
	Query      string
	Limit      int
}

type CreateRequest struct {
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Paid        *bool   `json:"paid"`
	AccountID   *string `json:"account_id"`
	CardID      *string `json:"card_id"`
	CategoryID  *string `json:"category_id"`
	Notes       string  `json:"notes"`
}

type UpdateRequest struct {
	Type        *string `json:"type"`
	Amount      *int64  `json:"amount"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Paid        *bool   `json:"paid"`
	AccountID   *string `json:"account_id"`
	CategoryID  *string `json:"category_id"`
	Notes       *string `json:"notes"`
}

// Input is a validated account transaction ready to be written.
type Input struct {
	Type        string
	Amount      int64
	Description string
	Date        time.Time
	Paid        bool
	AccountID   string
	CategoryID  *string
	Notes       string
}

// Patch is a validated partial update.
type Patch struct {
	Type        *string
	Amount      *int64
	Description *string
	Date        *time.Time
	Paid        *bool
	AccountID   *string
	CategoryID  *string
	Notes       *string
}

func (p Patch) apply(t Transaction) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Paid != nil {
		t.Paid = *p.Paid
	}
	if p.AccountID != nil {
		t.AccountID = p.AccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = p.CategoryID
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}

func normalizeType(t string) string {
	t = strings.TrimSpace(strings.ToLower(t))
	switch t {
	case TypeIncome, "receita":
		return TypeIncome
	case TypeExpense, "despesa":
		return TypeExpense
	}
	return ""
}
