package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/transactions"
)

type MonthRow struct {
	Month   string `json:"month"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Net     int64  `json:"net"`
}

type DayPoint struct {
	Date    string `json:"date"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Balance int64  `json:"balance"`
}

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

// typeFilter selects the rows a report counts for typ. Expense uses the
// spending rule so invoice payments are not counted twice.
func typeFilter(typ string) string {
	if typ == "income" {
		return `t.type = 'income'`
	}
	return transactions.SpendingFilter
}

// Categories totals transactions of typ per category between from and to,
// largest first.
func (r *Repository) Categories(ctx context.Context, userID, typ string, from, to time.Time) ([]CategoryRow, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT t.category_id::text, COALESCE(c.name, $4), SUM(t.amount)::bigint, COUNT(*)::bigint
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.date BETWEEN $2 AND $3 AND `+typeFilter(typ)+`
		GROUP BY 1, 2
		ORDER BY 3 DESC, 2
	`, userID, from, to, uncategorized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CategoryRow, 0)
	for rows.Next() {
		var row CategoryRow
		if err := rows.Scan(&row.CategoryID, &row.Category, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return withShares(out), nil
}

// Monthly returns one row per month of year, empty months included.
func (r *Repository) Monthly(ctx context.Context, userID string, year int) ([]MonthRow, error) {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.Pool.Query(ctx, `
		WITH months AS (
			SELECT generate_series($2::date, ($2::date + interval '11 months'), interval '1 month')::date AS m
		)
		SELECT to_char(months.m, 'YYYY-MM'),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0)::bigint,
			COALESCE(SUM(t.amount) FILTER (WHERE `+transactions.SpendingFilter+`), 0)::bigint
		FROM months
		LEFT JOIN transactions t
			ON t.user_id = $1 AND date_trunc('month', t.date)::date = months.m
		GROUP BY months.m
		ORDER BY months.m
	`, userID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MonthRow, 0, 12)
	for rows.Next() {
		var m MonthRow
		if err := rows.Scan(&m.Month, &m.Income, &m.Expense); err != nil {
			return nil, err
		}
		m.Net = m.Income - m.Expense
		out = append(out, m)
	}
	return out, rows.Err()
}

// Cashflow is the daily income/expense series between from and to with a
// running balance.
func (r *Repository) Cashflow(ctx context.Context, userID string, from, to time.Time) ([]DayPoint, error) {
	rows, err := r.Pool.Query(ctx, `
		WITH days AS (
			SELECT d::date AS day FROM generate_series($2::date, $3::date, interval '1 day') AS d
		)
		SELECT days.day::text,
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0)::bigint,
			COALESCE(SUM(t.amount) FILTER (WHERE `+transactions.SpendingFilter+`), 0)::bigint
		FROM days
		LEFT JOIN transactions t ON t.user_id = $1 AND t.date = days.day
		GROUP BY days.day
		ORDER BY days.day
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DayPoint, 0)
	var running int64
	for rows.Next() {
		var p DayPoint
		if err := rows.Scan(&p.Date, &p.Income, &p.Expense); err != nil {
			return nil, err
		}
		running += p.Income - p.Expense
		p.Balance = running
		out = append(out, p)
	}
	return out, rows.Err()
}
