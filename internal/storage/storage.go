// Package storage keeps generated documents (invoice statements, reports)
// in Azure Blob Storage or, without a blob endpoint, in a local directory.
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/lucasgomesc1993/financas-api/internal/config"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// New picks the blob backend when a service URL is configured.
func New(cfg config.StorageConfig, logger *log.Logger) (Store, error) {
	if cfg.BlobServiceURL != "" {
		return NewBlobStore(cfg.BlobServiceURL, cfg.Container, logger)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "financas-statements")
	}
	logger.Info("using local statement storage", "dir", dir)
	return NewDirStore(dir), nil
}
