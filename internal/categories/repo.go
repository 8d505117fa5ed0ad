package categories

import (
	"context"
	"fmt"

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

const selectCols = `id::text, user_id::text, name, type, color, icon, created_at`

func scan(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt)
	return c, err
}

func (r *Repository) List(ctx context.Context, userID, typ string) ([]Category, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectCols+`
		FROM categories
		WHERE user_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY type, name
	`, userID, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, id string) (Category, error) {
	c, err := scan(r.Pool.QueryRow(ctx, `SELECT `+selectCols+` FROM categories WHERE id = $1 AND user_id = $2`, id, userID))
	if database.IsNoRows(err) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) Create(ctx context.Context, userID string, req CreateRequest) (Category, error) {
	c, err := scan(r.Pool.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, type, color, icon)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+selectCols,
		userID, req.Name, req.Type, req.Color, req.Icon,
	))
	if database.IsUniqueViolation(err) {
		return Category{}, ErrDuplicate
	}
	return c, err
}

func (r *Repository) Update(ctx context.Context, userID, id string, req UpdateRequest) (Category, error) {
	c, err := scan(r.Pool.QueryRow(ctx, `
		UPDATE categories SET
			name  = COALESCE($3, name),
			color = COALESCE($4, color),
			icon  = COALESCE($5, icon)
		WHERE id = $1 AND user_id = $2
		RETURNING `+selectCols,
		id, userID, req.Name, req.Color, req.Icon,
	))
	switch {
	case database.IsNoRows(err):
		return Category{}, ErrNotFound
	case database.IsUniqueViolation(err):
		return Category{}, ErrDuplicate
	}
	return c, err
}

// Delete removes the category; transactions keep their rows with a NULL
// category (ON DELETE SET NULL) and its budgets go with it.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	ct, err := r.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults inserts the default category set, skipping names the user
// already has.
func (r *Repository) SeedDefaults(ctx context.Context, userID string) error {
	return database.WithTx(ctx, r.Pool, func(tx pgx.Tx) error {
		for _, s := range defaults {
			if _, err := tx.Exec(ctx, `
				INSERT INTO categories (user_id, name, type, color, icon)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, type, name) DO NOTHING
			`, userID, s.Name, s.Type, s.Color, s.Icon); err != nil {
				return fmt.Errorf("seed %s: %w", s.Name, err)
			}
		}
		return nil
	})
}

// FindByName looks a category up inside an open transaction; a missing
// category yields an empty id and no error.
func FindByName(ctx context.Context, db database.DBTX, userID, typ, name string) (string, error) {
	var id string
	err := db.QueryRow(ctx, `
		SELECT id::text FROM categories WHERE user_id = $1 AND type = $2 AND name = $3
	`, userID, typ, name).Scan(&id)
	if database.IsNoRows(err) {
		return "", nil
	}
	return id, err
}

// FindByNameFold is FindByName with case-insensitive matching, used by the
// CSV import.
func FindByNameFold(ctx context.Context, db database.DBTX, userID, typ, name string) (string, error) {
	var id string
	err := db.QueryRow(ctx, `
		SELECT id::text FROM categories
		WHERE user_id = $1 AND type = $2 AND lower(name) = lower($3)
	`, userID, typ, name).Scan(&id)
	if database.IsNoRows(err) {
		return "", nil
	}
	return id, err
}
