package recurring

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("recurring transaction not found")
	ErrInvalidRule      = errors.New("invalid recurrence rule")
	ErrAccountNotFound  = errors.New("account not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryMismatch = errors.New("category type does not match transaction type")
)

type Recurring struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	Type        string     `json:"type"`
	AccountID   string     `json:"account_id"`
	CategoryID  *string    `json:"category_id,omitempty"`
	RRule       string     `json:"rrule"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateRequest struct {
	Description string  `json:"description"`
	Amount      int64   `json:"amount"`
	Type        string  `json:"type"`
	AccountID   string  `json:"account_id"`
	CategoryID  *string `json:"category_id"`
	RRule       string  `json:"rrule"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

// Input is a validated CreateRequest.
type Input struct {
	Description string
	Amount      int64
	Type        string
	AccountID   string
	CategoryID  *string
	RRule       string
	StartDate   time.Time
	EndDate     *time.Time
}

type UpdateRequest struct {
	Active *bool `json:"active"`
}
