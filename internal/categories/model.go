package categories

import (
	"errors"
	"time"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// InvoicePaymentName is the expense category used for card invoice payments.
const InvoicePaymentName = "Pagamento de fatura"

var (
	ErrNotFound  = errors.New("category not found")
	ErrDuplicate = errors.New("category already exists")
)

type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type UpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

type seed struct {
	Name  string
	Type  string
	Color string
	Icon  string
}

var defaults = []seed{
	{"Salário", TypeIncome, "#16a34a", "briefcase"},
	{"Freelance", TypeIncome, "#22c55e", "laptop"},
	{"Investimentos", TypeIncome, "#0ea5e9", "trending-up"},
	{"Outras receitas", TypeIncome, "#64748b", "plus-circle"},
	{"Alimentação", TypeExpense, "#f97316", "utensils"},
	{"Moradia", TypeExpense, "#a855f7", "home"},
	{"Transporte", TypeExpense, "#3b82f6", "car"},
	{"Saúde", TypeExpense, "#ef4444", "heart-pulse"},
	{"Educação", TypeExpense, "#eab308", "graduation-cap"},
	{"Lazer", TypeExpense, "#ec4899", "gamepad-2"},
	{"Compras", TypeExpense, "#14b8a6", "shopping-bag"},
	{"Contas", TypeExpense, "#6366f1", "receipt"},
	{InvoicePaymentName, TypeExpense, "#0f172a", "credit-card"},
	{"Outros", TypeExpense, "#64748b", "ellipsis"},
}

func normalizeType(t string) string {
	switch t {
	case TypeIncome, TypeExpense:
		return t
	}
	return ""
}
