package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/database"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, fullName string) (User, error) {
	var u User
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id::text, email, password_hash, full_name, created_at
	`, normalizeEmail(email), passwordHash, fullName).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(ctx, `
		SELECT id::text, email, password_hash, full_name, last_seen_at, created_at
		FROM users WHERE email = $1
	`, normalizeEmail(email))
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(ctx, `
		SELECT id::text, email, password_hash, full_name, last_seen_at, created_at
		FROM users WHERE id = $1
	`, id)
}

func (r *Repository) scanOne(ctx context.Context, q string, arg any) (User, error) {
	var u User
	err := r.Pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.LastSeenAt, &u.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Touch updates last_seen_at; callers treat it as best effort.
func (r *Repository) Touch(ctx context.Context, id string) error {
	_, err := r.Pool.Exec(ctx, `UPDATE users SET last_seen_at = NOW() WHERE id = $1`, id)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
