package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/accounts"
	"github.com/lucasgomesc1993/financas-api/internal/categories"
	"github.com/lucasgomesc1993/financas-api/internal/database"
)

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

// fuzzy search ranks in memory over at most this many candidate rows
const searchWindow = 2000

const selectCols = `
	t.id::text, t.user_id::text, t.type, t.amount, t.description, t.date, t.paid,
	t.account_id::text, t.card_id::text, t.invoice_id::text, t.category_id::text, c.name,
	t.installment, t.installments, t.purchase_id::text, t.transfer_id::text, t.direction, t.recurring_id::text,
	t.notes, t.created_at`

const fromJoin = `FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`

func scan(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.Date, &t.Paid,
		&t.AccountID, &t.CardID, &t.InvoiceID, &t.CategoryID, &t.CategoryName,
		&t.Installment, &t.Installments, &t.PurchaseID, &t.TransferID, &t.Direction, &t.RecurringID,
		&t.Notes, &t.CreatedAt)
	if database.IsNoRows(err) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

func (r *Repository) List(ctx context.Context, userID string, f Filter) ([]Transaction, error) {
	where := []string{"t.user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.From != nil {
		add("t.date >= $%d", *f.From)
	}
	if f.To != nil {
		add("t.date <= $%d", *f.To)
	}
	if f.AccountID != nil {
		add("t.account_id = $%d", *f.AccountID)
	}
	if f.CardID != nil {
		add("t.card_id = $%d", *f.CardID)
	}
	if f.InvoiceID != nil {
		add("t.invoice_id = $%d", *f.InvoiceID)
	}
	if f.CategoryID != nil {
		add("t.category_id = $%d", *f.CategoryID)
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.Paid != nil {
		add("t.paid = $%d", *f.Paid)
	}

	limit := f.Limit
	if strings.TrimSpace(f.Query) != "" {
		limit = searchWindow
	}
	args = append(args, limit)

	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+` `+fromJoin+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY t.date DESC, t.created_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(f.Query) != "" {
		out = Search(out, f.Query)
		if len(out) > f.Limit {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Transaction, error) {
	return scan(r.Pool.QueryRow(ctx, `SELECT `+selectCols+` `+fromJoin+` WHERE t.id = $1 AND t.user_id = $2`, id, userID))
}

func (r *Repository) Create(ctx context.Context, userID string, in Input) (Transaction, error) {
	var id string
	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if err := lockAccount(ctx, tx, userID, in.AccountID); err != nil {
			return err
		}
		if err := checkCategory(ctx, tx, userID, in.CategoryID, in.Type); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO transactions (user_id, type, amount, description, date, paid, account_id, category_id, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id::text
		`, userID, in.Type, in.Amount, in.Description, in.Date, in.Paid, in.AccountID, in.CategoryID, in.Notes).Scan(&id); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		return accounts.ApplyDelta(ctx, tx, userID, in.AccountID, accounts.Effect(in.Type, "", in.Amount, in.Paid))
	})
	if err != nil {
		return Transaction{}, err
	}
	return r.Get(ctx, userID, id)
}

// Update reverts the balance effect of the stored row and applies the
// effect of the patched one, possibly on a different account.
func (r *Repository) Update(ctx context.Context, userID, id string, p Patch) (Transaction, error) {
	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		old, err := lockTransaction(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if old.Locked() || old.AccountID == nil {
			return ErrLocked
		}

		next := p.apply(old)
		if p.AccountID != nil && *p.AccountID != *old.AccountID {
			if err := lockAccount(ctx, tx, userID, *next.AccountID); err != nil {
				return err
			}
		}
		if p.CategoryID != nil || p.Type != nil {
			if err := checkCategory(ctx, tx, userID, next.CategoryID, next.Type); err != nil {
				return err
			}
		}

		for _, d := range balanceDeltas(old, next) {
			if err := accounts.ApplyDelta(ctx, tx, userID, d.AccountID, d.Amount); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE transactions SET
				type = $3, amount = $4, description = $5, date = $6, paid = $7,
				account_id = $8, category_id = $9, notes = $10
			WHERE id = $1 AND user_id = $2
		`, id, userID, next.Type, next.Amount, next.Description, next.Date, next.Paid,
			next.AccountID, next.CategoryID, next.Notes)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	return r.Get(ctx, userID, id)
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		old, err := lockTransaction(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if old.Locked() || old.AccountID == nil {
			return ErrLocked
		}

		if err := accounts.ApplyDelta(ctx, tx, userID, *old.AccountID, -effect(old)); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
		return err
	})
}

// SetPaid toggles the paid flag and moves the account balance accordingly.
func (r *Repository) SetPaid(ctx context.Context, userID, id string, paid bool) (Transaction, error) {
	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		old, err := lockTransaction(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if old.Locked() || old.AccountID == nil {
			return ErrLocked
		}
		if old.Paid == paid {
			return nil
		}

		next := old
		next.Paid = paid
		for _, d := range balanceDeltas(old, next) {
			if err := accounts.ApplyDelta(ctx, tx, userID, d.AccountID, d.Amount); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `UPDATE transactions SET paid = $3 WHERE id = $1 AND user_id = $2`, id, userID, paid)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	return r.Get(ctx, userID, id)
}

// Import writes all rows into accountID in one transaction. Category names
// are matched case-insensitively; unknown names leave the category empty.
func (r *Repository) Import(ctx context.Context, userID, accountID string, rows []ImportRow) (int, error) {
	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if err := lockAccount(ctx, tx, userID, accountID); err != nil {
			return err
		}

		cache := map[string]*string{}
		var delta int64
		for _, row := range rows {
			key := row.Type + "/" + strings.ToLower(row.Category)
			catID, ok := cache[key]
			if !ok && row.Category != "" {
				id, err := categories.FindByNameFold(ctx, tx, userID, row.Type, row.Category)
				if err != nil {
					return err
				}
				if id != "" {
					catID = &id
				}
				cache[key] = catID
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO transactions (user_id, type, amount, description, date, paid, account_id, category_id, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, userID, row.Type, row.Amount, row.Description, row.Date, row.Paid, accountID, catID, row.Notes); err != nil {
				return fmt.Errorf("import row %d: %w", row.Line, err)
			}
			delta += accounts.Effect(row.Type, "", row.Amount, row.Paid)
		}

		return accounts.ApplyDelta(ctx, tx, userID, accountID, delta)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func lockTransaction(ctx context.Context, tx pgx.Tx, userID, id string) (Transaction, error) {
	return scan(tx.QueryRow(ctx, `
		SELECT `+selectCols+` `+fromJoin+`
		WHERE t.id = $1 AND t.user_id = $2
		FOR UPDATE OF t
	`, id, userID))
}

func lockAccount(ctx context.Context, tx pgx.Tx, userID, accountID string) error {
	acc, err := accounts.LockForUpdate(ctx, tx, userID, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if acc.Archived {
		return ErrAccountArchived
	}
	return nil
}

func checkCategory(ctx context.Context, tx pgx.Tx, userID string, categoryID *string, typ string) error {
	if categoryID == nil {
		return nil
	}
	var catType string
	err := tx.QueryRow(ctx, `SELECT type FROM categories WHERE id = $1 AND user_id = $2`, *categoryID, userID).Scan(&catType)
	if database.IsNoRows(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}
	if catType != typ {
		return ErrCategoryMismatch
	}
	return nil
}
