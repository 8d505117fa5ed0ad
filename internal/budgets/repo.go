package budgets

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/database"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/transactions"
)

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

const selectCols = `b.id::text, b.user_id::text, b.category_id::text, c.name, b.month, b.amount, b.created_at`

func scan(row pgx.Row, spent *int64) (Budget, error) {
	var b Budget
	dest := []any{&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.Month, &b.Amount, &b.CreatedAt}
	if spent != nil {
		dest = append(dest, spent)
	}
	err := row.Scan(dest...)
	if database.IsNoRows(err) {
		return Budget{}, ErrNotFound
	}
	return b, err
}

// List returns the budgets of month with their spending progress. Spent
// counts every expense in the category dated inside the month, card
// purchases included.
func (r *Repository) List(ctx context.Context, userID string, month time.Time) ([]Budget, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+`,
			COALESCE((
				SELECT SUM(t.amount) FROM transactions t
				WHERE t.user_id = b.user_id
				  AND t.category_id = b.category_id
				  AND t.date >= $3 AND t.date < $4
				  AND `+transactions.SpendingFilter+`
			), 0)::bigint
		FROM budgets b
		JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = $1 AND b.month = $2
		ORDER BY c.name
	`, userID, start.Format(httpx.MonthLayout), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Budget, 0)
	for rows.Next() {
		var spent int64
		b, err := scan(rows, &spent)
		if err != nil {
			return nil, err
		}
		b.Progress = ComputeProgress(b.Amount, spent)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, userID string, req CreateRequest) (Budget, error) {
	var catType string
	err := r.Pool.QueryRow(ctx, `SELECT type FROM categories WHERE id = $1 AND user_id = $2`, req.CategoryID, userID).Scan(&catType)
	if database.IsNoRows(err) {
		return Budget{}, ErrCategoryNotFound
	}
	if err != nil {
		return Budget{}, err
	}
	if catType != "expense" {
		return Budget{}, ErrNotExpense
	}

	var id string
	err = r.Pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, month, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`, userID, req.CategoryID, req.Month, req.Amount).Scan(&id)
	if database.IsUniqueViolation(err) {
		return Budget{}, ErrDuplicate
	}
	if err != nil {
		return Budget{}, err
	}
	return r.get(ctx, userID, id)
}

func (r *Repository) Update(ctx context.Context, userID, id string, amount int64) (Budget, error) {
	ct, err := r.Pool.Exec(ctx, `UPDATE budgets SET amount = $3 WHERE id = $1 AND user_id = $2`, id, userID, amount)
	if err != nil {
		return Budget{}, err
	}
	if ct.RowsAffected() == 0 {
		return Budget{}, ErrNotFound
	}
	return r.get(ctx, userID, id)
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	ct, err := r.Pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CopyMonth copies the budgets of from into to, skipping categories that
// already have a budget in to. Returns how many were created.
func (r *Repository) CopyMonth(ctx context.Context, userID, from, to string) (int64, error) {
	ct, err := r.Pool.Exec(ctx, `
		INSERT INTO budgets (user_id, category_id, month, amount)
		SELECT user_id, category_id, $3, amount
		FROM budgets
		WHERE user_id = $1 AND month = $2
		ON CONFLICT (user_id, category_id, month) DO NOTHING
	`, userID, from, to)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// ExceededCount is used by the dashboard.
func (r *Repository) ExceededCount(ctx context.Context, userID string, month time.Time) (int, error) {
	items, err := r.List(ctx, userID, month)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range items {
		if b.Status == StatusExceeded {
			n++
		}
	}
	return n, nil
}

func (r *Repository) get(ctx context.Context, userID, id string) (Budget, error) {
	return scan(r.Pool.QueryRow(ctx, `
		SELECT `+selectCols+`
		FROM budgets b JOIN categories c ON c.id = b.category_id
		WHERE b.id = $1 AND b.user_id = $2
	`, id, userID), nil)
}
