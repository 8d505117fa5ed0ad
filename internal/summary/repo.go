package summary

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/transactions"
)

type Summary struct {
	Month           string `json:"month"`
	TotalBalance    int64  `json:"total_balance"`
	Income          int64  `json:"income"`
	Expense         int64  `json:"expense"`
	Net             int64  `json:"net"`
	OpenInvoices    int64  `json:"open_invoices_total"`
	OverdueInvoices int    `json:"overdue_invoices"`
	BudgetsExceeded int    `json:"budgets_exceeded"`
}

// BudgetCounter counts budgets over their amount in a month.
type BudgetCounter interface {
	ExceededCount(ctx context.Context, userID string, month time.Time) (int, error)
}

type Repository struct {
	Pool    *pgxpool.Pool
	Budgets BudgetCounter
}

func NewRepository(pool *pgxpool.Pool, budgets BudgetCounter) *Repository {
	return &Repository{Pool: pool, Budgets: budgets}
}

// Get builds the dashboard for the month starting at month. Card purchases
// count as expense by purchase date; invoice payments do not count again.
func (r *Repository) Get(ctx context.Context, userID string, month, today time.Time) (Summary, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	s := Summary{Month: from.Format("2006-01")}

	err := r.Pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(balance) FROM accounts WHERE user_id = $1 AND NOT archived), 0)::bigint,
			COALESCE((SELECT SUM(t.amount) FROM transactions t
				WHERE t.user_id = $1 AND t.type = 'income' AND t.date >= $2 AND t.date < $3), 0)::bigint,
			COALESCE((SELECT SUM(t.amount) FROM transactions t
				WHERE t.user_id = $1 AND `+transactions.SpendingFilter+` AND t.date >= $2 AND t.date < $3), 0)::bigint,
			COALESCE((SELECT SUM(total - paid_amount) FROM invoices
				WHERE user_id = $1 AND total > paid_amount), 0)::bigint,
			(SELECT COUNT(*) FROM invoices
				WHERE user_id = $1 AND total > paid_amount AND due_date < $4)::int
	`, userID, from, to, today).Scan(&s.TotalBalance, &s.Income, &s.Expense, &s.OpenInvoices, &s.OverdueInvoices)
	if err != nil {
		return Summary{}, err
	}
	s.Net = s.Income - s.Expense

	if r.Budgets != nil {
		if s.BudgetsExceeded, err = r.Budgets.ExceededCount(ctx, userID, from); err != nil {
			return Summary{}, err
		}
	}
	return s, nil
}
