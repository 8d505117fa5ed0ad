package reports

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasgomesc1993/financas-api/internal/database"
	"github.com/lucasgomesc1993/financas-api/internal/storage"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("link expired")
)

const DefaultLinkTTL = 7 * 24 * time.Hour

// Links stores generated documents and hands out download tokens for them.
type Links struct {
	Pool  *pgxpool.Pool
	Blobs storage.Store
	TTL   time.Duration
	Now   func() time.Time
}

func NewLinks(pool *pgxpool.Pool, blobs storage.Store, ttl time.Duration) *Links {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &Links{Pool: pool, Blobs: blobs, TTL: ttl, Now: time.Now}
}

func newToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Archive writes data under the user's prefix and records a token valid
// for TTL.
func (l *Links) Archive(ctx context.Context, userID, kind string, data []byte) (string, time.Time, error) {
	token, err := newToken(24)
	if err != nil {
		return "", time.Time{}, err
	}
	expires := l.Now().Add(l.TTL)
	key := fmt.Sprintf("%s/%s/%s.pdf", userID, kind, token)

	if err := l.Blobs.Put(ctx, key, data); err != nil {
		return "", time.Time{}, fmt.Errorf("store %s: %w", kind, err)
	}
	if _, err := l.Pool.Exec(ctx, `
		INSERT INTO reports (user_id, kind, object_key, token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, kind, key, token, expires); err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Open returns the document behind token.
func (l *Links) Open(ctx context.Context, token string) ([]byte, string, error) {
	var key, kind string
	var exp time.Time
	err := l.Pool.QueryRow(ctx, `SELECT object_key, kind, expires_at FROM reports WHERE token = $1`, token).Scan(&key, &kind, &exp)
	if database.IsNoRows(err) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if l.Now().After(exp) {
		return nil, "", ErrExpired
	}

	data, err := l.Blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	return data, kind, err
}

// Purge deletes expired documents and their link rows. Rows whose object
// could not be removed are kept for the next run.
func (l *Links) Purge(ctx context.Context) (int64, error) {
	rows, err := l.Pool.Query(ctx, `SELECT id, object_key FROM reports WHERE expires_at < $1`, l.Now())
	if err != nil {
		return 0, err
	}
	expired, err := pgx.CollectRows(rows, pgx.RowToStructByPos[expiredObject])
	if err != nil {
		return 0, err
	}

	ids, blobErr := removeObjects(ctx, l.Blobs, expired)
	if len(ids) == 0 {
		return 0, blobErr
	}
	ct, err := l.Pool.Exec(ctx, `DELETE FROM reports WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), blobErr
}

type expiredObject struct {
	ID  int64
	Key string
}

// removeObjects deletes each object from blobs and returns the ids of the
// ones that are gone.
func removeObjects(ctx context.Context, blobs storage.Store, objects []expiredObject) ([]int64, error) {
	var ids []int64
	var errs []error
	for _, o := range objects {
		if err := blobs.Delete(ctx, o.Key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", o.Key, err))
			continue
		}
		ids = append(ids, o.ID)
	}
	return ids, errors.Join(errs...)
}
