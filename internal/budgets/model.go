package budgets

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("budget not found")
	ErrDuplicate        = errors.New("budget already exists for this category and month")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotExpense       = errors.New("budgets only apply to expense categories")
)

type Budget struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Month        string    `json:"month"`
	Amount       int64     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
	Progress
}

type CreateRequest struct {
	CategoryID string `json:"category_id"`
	Month      string `json:"month"`
	Amount     int64  `json:"amount"`
}

type UpdateRequest struct {
	Amount int64 `json:"amount"`
}

type CopyRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}
