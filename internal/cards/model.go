package cards

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("card not found")
	ErrInUse           = errors.New("card has purchases")
	ErrAccountNotFound = errors.New("default account not found")
)

type Card struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Brand            string          `json:"brand"`
	Limit            int64           `json:"limit"`
	ClosingDay       int             `json:"closing_day"`
	DueDay           int             `json:"due_day"`
	DefaultAccountID *string         `json:"default_account_id,omitempty"`
	Color            string          `json:"color"`
	Archived         bool            `json:"archived"`
	Used             int64           `json:"used"`
	Available        int64           `json:"available"`
	Utilization      decimal.Decimal `json:"utilization"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SetUsage fills the limit fields from the unpaid invoice balance.
func (c *Card) SetUsage(used int64) {
	c.Used = used
	c.Available = c.Limit - used
	c.Utilization = Utilization(c.Limit, used)
}

// Utilization is used/limit rounded to four places; zero for a card
// without limit.
func Utilization(limit, used int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(used).Div(decimal.NewFromInt(limit)).Round(4)
}

type CreateRequest struct {
	Name             string  `json:"name"`
	Brand            string  `json:"brand"`
	Limit            int64   `json:"limit"`
	ClosingDay       int     `json:"closing_day"`
	DueDay           int     `json:"due_day"`
	DefaultAccountID *string `json:"default_account_id"`
	Color            string  `json:"color"`
}

type UpdateRequest struct {
	Name             *string `json:"name"`
	Brand            *string `json:"brand"`
	Limit            *int64  `json:"limit"`
	ClosingDay       *int    `json:"closing_day"`
	DueDay           *int    `json:"due_day"`
	DefaultAccountID *string `json:"default_account_id"`
	Color            *string `json:"color"`
	Archived         *bool   `json:"archived"`
}

func validDay(d int) bool {
	return d >= 1 && d <= 31
}
