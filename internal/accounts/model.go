package accounts

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrInUse         = errors.New("account has transactions")
	ErrArchived      = errors.New("account is archived")
	ErrSameAccount   = errors.New("transfer accounts must differ")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

var validTypes = map[string]bool{
	"checking":   true,
	"savings":    true,
	"investment": true,
	"cash":       true,
	"wallet":     true,
}

type Account struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Bank           string    `json:"bank"`
	Color          string    `json:"color"`
	InitialBalance int64     `json:"initial_balance"`
	Balance        int64     `json:"balance"`
	Archived       bool      `json:"archived"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Bank           string `json:"bank"`
	Color          string `json:"color"`
	InitialBalance int64  `json:"initial_balance"`
}

type UpdateRequest struct {
	Name           *string `json:"name"`
	Type           *string `json:"type"`
	Bank           *string `json:"bank"`
	Color          *string `json:"color"`
	InitialBalance *int64  `json:"initial_balance"`
	Archived       *bool   `json:"archived"`
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Date          string `json:"date"`
	Description   string `json:"description"`
}

// Transfer is the pair of transactions written for one transfer.
type Transfer struct {
	TransferID    string    `json:"transfer_id"`
	OutID         string    `json:"out_transaction_id"`
	InID          string    `json:"in_transaction_id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        int64     `json:"amount"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
}
