package utils

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage talks to any S3 compatible endpoint (MinIO, DigitalOcean Spaces).
//
// Env: SP_URL, SP_ACCESS_KEY_ID, SP_SECRET_ACCESS_KEY, SP_BUCKET, SP_INSECURE
type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage() (*MinioStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("SP_URL"))
	bucket := strings.TrimSpace(os.Getenv("SP_BUCKET"))
	if endpoint == "" || bucket == "" {
		return nil, errors.New("SP_URL and SP_BUCKET are required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("SP_ACCESS_KEY_ID"), os.Getenv("SP_SECRET_ACCESS_KEY"), ""),
		Secure: !strings.EqualFold(strings.TrimSpace(os.Getenv("SP_INSECURE")), "true"),
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorage{client: client, bucket: bucket}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioStorage) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (s *MinioStorage) Delete(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}
