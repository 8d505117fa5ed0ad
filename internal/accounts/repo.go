package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

const selectCols = `id::text, user_id::text, name, type, bank, color, initial_balance, balance, archived, created_at, updated_at`

func scan(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Bank, &a.Color,
		&a.InitialBalance, &a.Balance, &a.Archived, &a.CreatedAt, &a.UpdatedAt)
	if database.IsNoRows(err) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) List(ctx context.Context, userID string, includeArchived bool) ([]Account, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+`
		FROM accounts
		WHERE user_id = $1 AND ($2 OR NOT archived)
		ORDER BY archived, name
	`, userID, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Account, error) {
	return scan(r.Pool.QueryRow(ctx, `SELECT `+selectCols+` FROM accounts WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *Repository) Create(ctx context.Context, userID string, req CreateRequest) (Account, error) {
	return scan(r.Pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, name, type, bank, color, initial_balance, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+selectCols,
		userID, req.Name, req.Type, req.Bank, req.Color, req.InitialBalance,
	))
}

// Update applies the non-nil fields. A new initial balance shifts the
// current balance by the same delta.
func (r *Repository) Update(ctx context.Context, userID, id string, req UpdateRequest) (Account, error) {
	return scan(r.Pool.QueryRow(ctx, `
		UPDATE accounts SET
			name            = COALESCE($3, name),
			type            = COALESCE($4, type),
			bank            = COALESCE($5, bank),
			color           = COALESCE($6, color),
			balance         = balance + (COALESCE($7, initial_balance) - initial_balance),
			initial_balance = COALESCE($7, initial_balance),
			archived        = COALESCE($8, archived),
			updated_at      = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+selectCols,
		id, userID, req.Name, req.Type, req.Bank, req.Color, req.InitialBalance, req.Archived,
	))
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		var used bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM transactions WHERE account_id = $1)
			    OR EXISTS(SELECT 1 FROM invoice_payments WHERE account_id = $1)
			    OR EXISTS(SELECT 1 FROM recurring WHERE account_id = $1)
		`, id).Scan(&used); err != nil {
			return err
		}
		if used {
			if _, err := LockForUpdate(ctx, tx, userID, id); err != nil {
				return err
			}
			return ErrInUse
		}

		ct, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Transfer moves amount between two accounts of the same user, writing an
// outgoing and an incoming transfer transaction that share a transfer id.
func (r *Repository) Transfer(ctx context.Context, userID string, req TransferRequest, date time.Time) (Transfer, error) {
	out := Transfer{
		TransferID:    uuid.NewString(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
	}

	err := database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		// lock in id order so concurrent opposite transfers cannot deadlock
		first, second := req.FromAccountID, req.ToAccountID
		if second < first {
			first, second = second, first
		}
		for _, id := range []string{first, second} {
			acc, err := LockForUpdate(ctx, tx, userID, id)
			if err != nil {
				return err
			}
			if acc.Archived {
				return ErrArchived
			}
		}

		if err := ApplyDelta(ctx, tx, userID, req.FromAccountID, -req.Amount); err != nil {
			return err
		}
		if err := ApplyDelta(ctx, tx, userID, req.ToAccountID, req.Amount); err != nil {
			return err
		}

		const ins = `
			INSERT INTO transactions (user_id, type, amount, description, date, paid, account_id, transfer_id, direction)
			VALUES ($1, 'transfer', $2, $3, $4, TRUE, $5, $6, $7)
			RETURNING id::text`
		if err := tx.QueryRow(ctx, ins, userID, req.Amount, req.Description, date, req.FromAccountID, out.TransferID, "out").Scan(&out.OutID); err != nil {
			return fmt.Errorf("insert outgoing transfer: %w", err)
		}
		if err := tx.QueryRow(ctx, ins, userID, req.Amount, req.Description, date, req.ToAccountID, out.TransferID, "in").Scan(&out.InID); err != nil {
			return fmt.Errorf("insert incoming transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}
	return out, nil
}

// DeleteTransfer removes both legs of a transfer and restores balances.
func (r *Repository) DeleteTransfer(ctx context.Context, userID, transferID string) error {
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT account_id::text, amount, direction
			FROM transactions
			WHERE transfer_id = $1 AND user_id = $2
			FOR UPDATE
		`, transferID, userID)
		if err != nil {
			return err
		}

		type leg struct {
			accountID string
			amount    int64
			direction string
		}
		var legs []leg
		for rows.Next() {
			var l leg
			if err := rows.Scan(&l.accountID, &l.amount, &l.direction); err != nil {
				rows.Close()
				return err
			}
			legs = append(legs, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(legs) == 0 {
			return ErrNotFound
		}

		for _, l := range legs {
			delta := l.amount
			if l.direction == "in" {
				delta = -l.amount
			}
			if err := ApplyDelta(ctx, tx, userID, l.accountID, delta); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM transactions WHERE transfer_id = $1 AND user_id = $2`, transferID, userID)
		return err
	})
}

// LockForUpdate loads the account row with FOR UPDATE inside tx.
func LockForUpdate(ctx context.Context, tx database.DBTX, userID, id string) (Account, error) {
	return scan(tx.QueryRow(ctx, `SELECT `+selectCols+` FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID))
}

// ApplyDelta adds delta (cents, may be negative) to the account balance.
func ApplyDelta(ctx context.Context, db database.DBTX, userID, id string, delta int64) error {
	if delta == 0 {
		return nil
	}
	ct, err := db.Exec(ctx, `
		UPDATE accounts SET balance = balance + $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, delta)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Effect is the balance change a paid transaction has on its account.
func Effect(typ, direction string, amount int64, paid bool) int64 {
	if !paid {
		return 0
	}
	switch typ {
	case "income":
		return amount
	case "expense":
		return -amount
	case "transfer":
		if direction == "in" {
			return amount
		}
		return -amount
	}
	return 0
}
