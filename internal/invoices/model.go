package invoices

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("invoice not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrCardArchived     = errors.New("card is archived")
	ErrLimitExceeded    = errors.New("purchase exceeds available limit")
	ErrAlreadyPaid      = errors.New("invoice already paid")
	ErrInvalidAmount    = errors.New("amount must be positive and not exceed the remaining balance")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountArchived  = errors.New("account is archived")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryMismatch = errors.New("card purchases need an expense category")
	ErrNoAccount        = errors.New("account_id required: card has no default account")
	ErrHasPayments      = errors.New("purchase belongs to an invoice with payments")
)

const MaxInstallments = 48

type Invoice struct {
	ID          string     `json:"id"`
	CardID      string     `json:"card_id"`
	CardName    string     `json:"card_name"`
	UserID      string     `json:"user_id"`
	Reference   string     `json:"reference"`
	ClosingDate time.Time  `json:"closing_date"`
	DueDate     time.Time  `json:"due_date"`
	Total       int64      `json:"total"`
	PaidAmount  int64      `json:"paid_amount"`
	Remaining   int64      `json:"remaining"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`

	Items    []Item    `json:"items,omitempty"`
	Payments []Payment `json:"payments,omitempty"`
}

// refresh recomputes the derived fields for today.
func (inv *Invoice) refresh(today time.Time) {
	inv.Remaining = inv.Total - inv.PaidAmount
	if inv.Remaining < 0 {
		inv.Remaining = 0
	}
	inv.Status = DeriveStatus(*inv, today)
}

// Item is a card transaction billed in an invoice.
type Item struct {
	ID           string    `json:"id"`
	PurchaseID   *string   `json:"purchase_id,omitempty"`
	Description  string    `json:"description"`
	Amount       int64     `json:"amount"`
	Date         time.Time `json:"date"`
	CategoryID   *string   `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Installment  *int16    `json:"installment,omitempty"`
	Installments *int16    `json:"installments,omitempty"`
	Notes        string    `json:"notes"`
}

type Payment struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	AccountID     string    `json:"account_id"`
	AccountName   string    `json:"account_name"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type PurchaseRequest struct {
	Description  string  `json:"description"`
	Amount       int64   `json:"amount"`
	Date         string  `json:"date"`
	CategoryID   *string `json:"category_id"`
	Installments int     `json:"installments"`
	Notes        string  `json:"notes"`
}

// Purchase is a validated card purchase.
type Purchase struct {
	Description  string
	Amount       int64
	Date         time.Time
	CategoryID   *string
	Installments int
	Notes        string
}

// PurchaseResult lists the installments written for one purchase.
type PurchaseResult struct {
	PurchaseID   string            `json:"purchase_id"`
	CardID       string            `json:"card_id"`
	Amount       int64             `json:"amount"`
	Installments []InstallmentInfo `json:"installments"`
}

type InstallmentInfo struct {
	TransactionID string    `json:"transaction_id"`
	InvoiceID     string    `json:"invoice_id"`
	Reference     string    `json:"reference"`
	Number        int       `json:"number"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
}

type PayRequest struct {
	AccountID string `json:"account_id"`
	Amount    *int64 `json:"amount"`
	Date      string `json:"date"`
}

// PayInput is a validated payment. A nil Amount pays the remaining balance.
type PayInput struct {
	AccountID string
	Amount    *int64
	Date      time.Time
}

// StatusChange is reported by the sweep for every invoice whose persisted
// status moved.
type StatusChange struct {
	InvoiceID string
	UserID    string
	CardName  string
	Reference string
	Remaining int64
	DueDate   time.Time
	From      string
	To        string
}
