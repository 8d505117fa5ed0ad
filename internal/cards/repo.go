package cards

import (
	"context"

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

const selectCols = `
	k.id::text, k.user_id::text, k.name, k.brand, k.credit_limit, k.closing_day, k.due_day,
	k.default_account_id::text, k.color, k.archived, k.created_at, k.updated_at`

// usedExpr is the unpaid balance of every invoice of card k.
const usedExpr = `COALESCE((
	SELECT SUM(GREATEST(i.total - i.paid_amount, 0)) FROM invoices i WHERE i.card_id = k.id
), 0)::bigint`

func scan(row pgx.Row, withUsage bool) (Card, error) {
	var c Card
	var closing, due int16
	var used int64
	dest := []any{&c.ID, &c.UserID, &c.Name, &c.Brand, &c.Limit, &closing, &due,
		&c.DefaultAccountID, &c.Color, &c.Archived, &c.CreatedAt, &c.UpdatedAt}
	if withUsage {
		dest = append(dest, &used)
	}
	if err := row.Scan(dest...); err != nil {
		if database.IsNoRows(err) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	c.ClosingDay, c.DueDay = int(closing), int(due)
	c.SetUsage(used)
	return c, nil
}

func (r *Repository) List(ctx context.Context, userID string, includeArchived bool) ([]Card, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+`, `+usedExpr+`
		FROM cards k
		WHERE k.user_id = $1 AND ($2 OR NOT k.archived)
		ORDER BY k.archived, k.name
	`, userID, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Card, 0)
	for rows.Next() {
		c, err := scan(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Card, error) {
	return Get(ctx, r.Pool, userID, id)
}

func (r *Repository) Create(ctx context.Context, userID string, req CreateRequest) (Card, error) {
	if err := checkAccount(ctx, r.Pool, userID, req.DefaultAccountID); err != nil {
		return Card{}, err
	}

	var id string
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO cards (user_id, name, brand, credit_limit, closing_day, due_day, default_account_id, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text
	`, userID, req.Name, req.Brand, req.Limit, req.ClosingDay, req.DueDay, req.DefaultAccountID, req.Color).Scan(&id)
	if err != nil {
		return Card{}, err
	}
	return r.Get(ctx, userID, id)
}

// Update changes card settings. A new closing or due day only affects
// invoices created afterwards.
func (r *Repository) Update(ctx context.Context, userID, id string, req UpdateRequest) (Card, error) {
	if err := checkAccount(ctx, r.Pool, userID, req.DefaultAccountID); err != nil {
		return Card{}, err
	}

	ct, err := r.Pool.Exec(ctx, `
		UPDATE cards SET
			name               = COALESCE($3, name),
			brand              = COALESCE($4, brand),
			credit_limit       = COALESCE($5, credit_limit),
			closing_day        = COALESCE($6, closing_day),
			due_day            = COALESCE($7, due_day),
			default_account_id = COALESCE($8, default_account_id),
			color              = COALESCE($9, color),
			archived           = COALESCE($10, archived),
			updated_at         = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, req.Name, req.Brand, req.Limit, req.ClosingDay, req.DueDay, req.DefaultAccountID, req.Color, req.Archived)
	if err != nil {
		return Card{}, err
	}
	if ct.RowsAffected() == 0 {
		return Card{}, ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

// Delete removes a card that never had purchases; its empty invoices go
// with it.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if _, err := LockForUpdate(ctx, tx, userID, id); err != nil {
			return err
		}
		var used bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE card_id = $1)`, id).Scan(&used); err != nil {
			return err
		}
		if used {
			return ErrInUse
		}
		_, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
		return err
	})
}

// Get loads a card with its usage through db, which may be an open tx.
func Get(ctx context.Context, db database.DBTX, userID, id string) (Card, error) {
	return scan(db.QueryRow(ctx, `
		SELECT `+selectCols+`, `+usedExpr+`
		FROM cards k WHERE k.id = $1 AND k.user_id = $2
	`, id, userID), true)
}

// LockForUpdate loads the card row with FOR UPDATE and its current usage.
// Purchases lock the card so concurrent ones see each other's usage.
func LockForUpdate(ctx context.Context, tx database.DBTX, userID, id string) (Card, error) {
	return scan(tx.QueryRow(ctx, `
		SELECT `+selectCols+`, `+usedExpr+`
		FROM cards k WHERE k.id = $1 AND k.user_id = $2
		FOR UPDATE OF k
	`, id, userID), true)
}

func checkAccount(ctx context.Context, db database.DBTX, userID string, accountID *string) error {
	if accountID == nil {
		return nil
	}
	var ok bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2)`, *accountID, userID).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}
