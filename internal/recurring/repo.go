package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/database"
)

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

const selectCols = `id::text, user_id::text, description, amount, type, account_id::text, category_id::text,
	rrule, start_date, end_date, active, created_at`

func scan(row pgx.Row) (Recurring, error) {
	var r Recurring
	err := row.Scan(&r.ID, &r.UserID, &r.Description, &r.Amount, &r.Type, &r.AccountID, &r.CategoryID,
		&r.RRule, &r.StartDate, &r.EndDate, &r.Active, &r.CreatedAt)
	if database.IsNoRows(err) {
		return Recurring{}, ErrNotFound
	}
	return r, err
}

func (r *Repository) List(ctx context.Context, userID string) ([]Recurring, error) {
	return r.query(ctx, `SELECT `+selectCols+` FROM recurring WHERE user_id = $1 ORDER BY active DESC, description`, userID)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]Recurring, error) {
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Recurring, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Recurring, error) {
	return scan(r.Pool.QueryRow(ctx, `SELECT `+selectCols+` FROM recurring WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *Repository) Create(ctx context.Context, userID string, in Input) (Recurring, error) {
	var ok bool
	if err := r.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2 AND NOT archived)
	`, in.AccountID, userID).Scan(&ok); err != nil {
		return Recurring{}, err
	}
	if !ok {
		return Recurring{}, ErrAccountNotFound
	}
	if in.CategoryID != nil {
		var typ string
		err := r.Pool.QueryRow(ctx, `SELECT type FROM categories WHERE id = $1 AND user_id = $2`, *in.CategoryID, userID).Scan(&typ)
		if database.IsNoRows(err) {
			return Recurring{}, ErrCategoryNotFound
		}
		if err != nil {
			return Recurring{}, err
		}
		if typ != in.Type {
			return Recurring{}, ErrCategoryMismatch
		}
	}

	return scan(r.Pool.QueryRow(ctx, `
		INSERT INTO recurring (user_id, description, amount, type, account_id, category_id, rrule, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+selectCols,
		userID, in.Description, in.Amount, in.Type, in.AccountID, in.CategoryID, in.RRule, in.StartDate, in.EndDate,
	))
}

func (r *Repository) SetActive(ctx context.Context, userID, id string, active bool) (Recurring, error) {
	return scan(r.Pool.QueryRow(ctx, `
		UPDATE recurring SET active = $3 WHERE id = $1 AND user_id = $2
		RETURNING `+selectCols, id, userID, active))
}

// Delete removes the schedule; transactions already created keep existing
// with recurring_id cleared.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	ct, err := r.Pool.Exec(ctx, `DELETE FROM recurring WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Materialize creates unpaid transactions for every occurrence of the
// user's active schedules in month. Occurrences that already exist are
// skipped, so running it twice creates nothing new.
func (r *Repository) Materialize(ctx context.Context, userID string, month time.Time) (int, error) {
	from, to := MonthBounds(month)

	created := 0
	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+selectCols+` FROM recurring r
			WHERE r.user_id = $1 AND r.active AND r.start_date <= $2
			  AND (r.end_date IS NULL OR r.end_date >= $3)
			  AND EXISTS (SELECT 1 FROM accounts a WHERE a.id = r.account_id AND NOT a.archived)
		`, userID, to, from)
		if err != nil {
			return err
		}
		var recs []Recurring
		for rows.Next() {
			rec, err := scan(rows)
			if err != nil {
				rows.Close()
				return err
			}
			recs = append(recs, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, rec := range recs {
			dates, err := Occurrences(rec, from, to)
			if err != nil {
				return fmt.Errorf("recurring %s: %w", rec.ID, err)
			}
			for _, date := range dates {
				ct, err := tx.Exec(ctx, `
					INSERT INTO transactions (user_id, type, amount, description, date, paid, account_id, category_id, recurring_id)
					VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8)
					ON CONFLICT (recurring_id, date) WHERE recurring_id IS NOT NULL DO NOTHING
				`, userID, rec.Type, rec.Amount, rec.Description, date, rec.AccountID, rec.CategoryID, rec.ID)
				if err != nil {
					return err
				}
				created += int(ct.RowsAffected())
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
