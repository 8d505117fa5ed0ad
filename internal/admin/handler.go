package admin

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LatestUser struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type Overview struct {
	UsersTotal        int64            `json:"users_total"`
	AccountsTotal     int64            `json:"accounts_total"`
	TransactionsTotal int64            `json:"transactions_total"`
	CardsTotal        int64            `json:"cards_total"`
	InvoicesByStatus  map[string]int64 `json:"invoices_by_status"`
	LatestUsers       []LatestUser     `json:"latest_users"`
}

type Store interface {
	Overview(ctx context.Context) (Overview, error)
}

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

func (r *Repository) Overview(ctx context.Context) (Overview, error) {
	out := Overview{InvoicesByStatus: map[string]int64{}, LatestUsers: []LatestUser{}}

	if err := r.Pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM accounts),
		       (SELECT COUNT(*) FROM transactions),
		       (SELECT COUNT(*) FROM cards)
	`).Scan(&out.UsersTotal, &out.AccountsTotal, &out.TransactionsTotal, &out.CardsTotal); err != nil {
		return Overview{}, err
	}

	rows, err := r.Pool.Query(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return Overview{}, err
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return Overview{}, err
		}
		out.InvoicesByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Overview{}, err
	}

	rows, err = r.Pool.Query(ctx, `
		SELECT id::text, email, created_at, last_seen_at
		FROM users
		ORDER BY created_at DESC
		LIMIT 20`)
	if err != nil {
		return Overview{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var u LatestUser
		if err := rows.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.LastSeenAt); err != nil {
			return Overview{}, err
		}
		out.LatestUsers = append(out.LatestUsers, u)
	}
	return out, rows.Err()
}

type Handler struct {
	Store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) Overview(c *fiber.Ctx) error {
	out, err := h.Store.Overview(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load overview")
	}
	return c.JSON(out)
}
