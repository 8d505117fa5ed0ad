package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/charmbracelet/log"

	"github.com/lucasgomesc1993/financas-api/internal/azure"
)

const defaultContainer = "statements"

type BlobStore struct {
	client    *azblob.Client
	container string
	log       *log.Logger
}

// NewBlobStore connects with the Azurite shared key for http endpoints and
// with the default Azure credential chain otherwise.
func NewBlobStore(serviceURL, container string, logger *log.Logger) (*BlobStore, error) {
	if container == "" {
		container = defaultContainer
	}

	var client *azblob.Client
	if azure.IsLocal(serviceURL) {
		name, key := azure.AzuriteCredentials()
		cred, err := azblob.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	}

	logger.Info("blob storage ready", "url", serviceURL, "container", container)
	return &BlobStore{client: client, container: container, log: logger}, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		s.log.Warn("create container failed", "container", s.container, "error", err)
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", s.container, key, err)
	}
	s.log.Debug("uploaded blob", "container", s.container, "key", key, "size_bytes", len(data))
	return nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download blob %s/%s: %w", s.container, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", s.container, key, err)
	}
	return data, nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("delete blob %s/%s: %w", s.container, key, err)
	}
	s.log.Debug("deleted blob", "container", s.container, "key", key)
	return nil
}
