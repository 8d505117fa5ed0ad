// Package idempotency replays stored responses for requests that repeat an
// Idempotency-Key header.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/database"
)

const Header = "Idempotency-Key"

// a claim left behind by a crashed request can be taken over after this long
const staleClaim = 5 * time.Minute

// Record is a stored response. Status 0 marks a claim whose request has not
// finished yet.
type Record struct {
	RequestHash string
	Status      int
	Body        string
}

func (r Record) Pending() bool { return r.Status == 0 }

type Store interface {
	// Claim reserves key for the caller. When someone else holds it, the
	// existing record is returned with claimed=false.
	Claim(ctx context.Context, ownerID, key, endpoint, requestHash string) (rec Record, claimed bool, err error)
	Complete(ctx context.Context, ownerID, key string, rec Record) error
	Release(ctx context.Context, ownerID, key string) error
}

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

func (r *Repository) Claim(ctx context.Context, ownerID, key, endpoint, requestHash string) (Record, bool, error) {
	ct, err := r.Pool.Exec(ctx, `
		INSERT INTO idempotency_keys (owner_id, endpoint, idempotency_key, request_hash, response_status, response_body)
		VALUES ($1, $2, $3, $4, 0, '')
		ON CONFLICT (owner_id, idempotency_key) DO UPDATE
			SET endpoint = EXCLUDED.endpoint, request_hash = EXCLUDED.request_hash, created_at = NOW()
			WHERE idempotency_keys.response_status = 0
			  AND idempotency_keys.created_at < NOW() - make_interval(secs => $5)
	`, ownerID, endpoint, key, requestHash, staleClaim.Seconds())
	if err != nil {
		return Record{}, false, err
	}
	if ct.RowsAffected() == 1 {
		return Record{RequestHash: requestHash}, true, nil
	}

	var rec Record
	err = r.Pool.QueryRow(ctx, `
		SELECT request_hash, response_status, response_body
		FROM idempotency_keys
		WHERE owner_id = $1 AND idempotency_key = $2
	`, ownerID, key).Scan(&rec.RequestHash, &rec.Status, &rec.Body)
	if database.IsNoRows(err) {
		// released between our insert and this read; treat as in flight
		return Record{RequestHash: requestHash}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, false, nil
}

func (r *Repository) Complete(ctx context.Context, ownerID, key string, rec Record) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE idempotency_keys SET response_status = $3, response_body = $4
		WHERE owner_id = $1 AND idempotency_key = $2 AND response_status = 0
	`, ownerID, key, rec.Status, rec.Body)
	return err
}

func (r *Repository) Release(ctx context.Context, ownerID, key string) error {
	_, err := r.Pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE owner_id = $1 AND idempotency_key = $2 AND response_status = 0
	`, ownerID, key)
	return err
}

var (
	ErrKeyReused   = errors.New("idempotency key reused with a different request")
	ErrKeyInFlight = errors.New("a request with this idempotency key is still in progress")
)

// Middleware claims the key before running the handler, so only one
// request per key ever executes. The first successful response is stored
// and replayed for later requests with the same key and body; a failed
// request gives the key back. Requests without the header pass straight
// through.
func Middleware(store Store, logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(Header))
		if key == "" || store == nil {
			return c.Next()
		}
		if len(key) > 255 {
			return fiber.NewError(fiber.StatusBadRequest, "idempotency key too long")
		}
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		hash := RequestHash(c.Method(), c.Path(), c.Body())
		ctx := auth.Context(c)

		rec, claimed, err := store.Claim(ctx, userID, key, c.Path(), hash)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to check idempotency key")
		}
		if !claimed {
			switch {
			case rec.RequestHash != hash:
				return fiber.NewError(fiber.StatusUnprocessableEntity, ErrKeyReused.Error())
			case rec.Pending():
				return fiber.NewError(fiber.StatusConflict, ErrKeyInFlight.Error())
			}
			c.Set("Idempotent-Replayed", "true")
			c.Status(rec.Status)
			c.Type("json")
			return c.SendString(rec.Body)
		}

		// a panic also has to give the key back
		done := false
		defer func() {
			if !done {
				release(ctx, store, logger, userID, key)
			}
		}()

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}
		done = true
		if err := store.Complete(ctx, userID, key, Record{
			RequestHash: hash,
			Status:      status,
			Body:        string(c.Response().Body()),
		}); err != nil && logger != nil {
			logger.Error("idempotency save failed", "user_id", userID, "key", key, "error", err)
		}
		return nil
	}
}

func release(ctx context.Context, store Store, logger *log.Logger, userID, key string) {
	if err := store.Release(ctx, userID, key); err != nil && logger != nil {
		logger.Error("idempotency release failed", "user_id", userID, "key", key, "error", err)
	}
}

func RequestHash(method, path string, body []byte) string {
	sum := sha256.Sum256(append([]byte(method+" "+path+" "), body...))
	return hex.EncodeToString(sum[:])
}
