package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/config"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

func TestDirStore_RoundTrip(t *testing.T) {
	s := NewDirStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1/invoices/2024-03.pdf", []byte("%PDF-1.3")))

	got, err := s.Get(ctx, "u1/invoices/2024-03.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(got))

	_, err = s.Get(ctx, "u1/invoices/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore_Delete(t *testing.T) {
	s := NewDirStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1/reports/x.pdf", []byte("x")))
	require.NoError(t, s.Delete(ctx, "u1/reports/x.pdf"))

	_, err := s.Get(ctx, "u1/reports/x.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "u1/reports/x.pdf"), "deleting twice is fine")
	assert.ErrorIs(t, s.Delete(ctx, "../x"), ErrInvalidKey)
}

func TestDirStore_RejectsEscapingKeys(t *testing.T) {
	s := NewDirStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", ".."} {
		assert.ErrorIs(t, s.Put(ctx, key, nil), ErrInvalidKey, key)
	}
}

func TestNew_FallsBackToDir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.StorageConfig{Dir: dir}, logging.Discard())
	require.NoError(t, err)

	ds, ok := s.(*DirStore)
	require.True(t, ok)
	assert.Equal(t, dir, ds.Root)
}
