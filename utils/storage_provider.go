package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderMinio = "minio"
)

// ObjectStorage stores attachment blobs under owner-scoped object keys.
type ObjectStorage interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
}

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}

// NewObjectStorage returns the configured provider.
func NewObjectStorage(ctx context.Context) (ObjectStorage, error) {
	switch GetStorageProvider() {
	case StorageProviderGCS:
		return NewGCSStorage(ctx)
	case StorageProviderMinio, "do", "s3":
		return NewMinioStorage()
	default:
		return nil, fmt.Errorf("storage provider %q not supported", GetStorageProvider())
	}
}
