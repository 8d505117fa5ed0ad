package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/storage"
)

type flakyStore struct {
	storage.Store
	failKey string
}

func (s flakyStore) Delete(ctx context.Context, key string) error {
	if key == s.failKey {
		return errors.New("service unavailable")
	}
	return s.Store.Delete(ctx, key)
}

func TestRemoveObjects_DeletesBlobs(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewDirStore(t.TempDir())
	require.NoError(t, blobs.Put(ctx, "u1/invoice/a.pdf", []byte("a")))
	require.NoError(t, blobs.Put(ctx, "u1/invoice/b.pdf", []byte("b")))
	require.NoError(t, blobs.Put(ctx, "u1/invoice/keep.pdf", []byte("k")))

	ids, err := removeObjects(ctx, blobs, []expiredObject{
		{ID: 1, Key: "u1/invoice/a.pdf"},
		{ID: 2, Key: "u1/invoice/b.pdf"},
		{ID: 3, Key: "u1/invoice/already-gone.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	for _, key := range []string{"u1/invoice/a.pdf", "u1/invoice/b.pdf"} {
		_, err := blobs.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}
	got, err := blobs.Get(ctx, "u1/invoice/keep.pdf")
	require.NoError(t, err)
	assert.Equal(t, "k", string(got))
}

func TestRemoveObjects_KeepsRowsWhoseBlobSurvives(t *testing.T) {
	ctx := context.Background()
	dir := storage.NewDirStore(t.TempDir())
	require.NoError(t, dir.Put(ctx, "u1/report/a.pdf", []byte("a")))
	require.NoError(t, dir.Put(ctx, "u1/report/b.pdf", []byte("b")))

	ids, err := removeObjects(ctx, flakyStore{Store: dir, failKey: "u1/report/b.pdf"}, []expiredObject{
		{ID: 7, Key: "u1/report/a.pdf"},
		{ID: 8, Key: "u1/report/b.pdf"},
	})
	assert.Equal(t, []int64{7}, ids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u1/report/b.pdf")

	_, err = dir.Get(ctx, "u1/report/b.pdf")
	assert.NoError(t, err)
}

func TestRemoveObjects_Empty(t *testing.T) {
	ids, err := removeObjects(context.Background(), storage.NewDirStore(t.TempDir()), nil)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}
