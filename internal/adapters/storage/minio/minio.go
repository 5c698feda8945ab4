// Package minio stores poll pictures in an S3 compatible bucket.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const objectPrefix = "pictures"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the scheme and host used in returned URLs.
	PublicURL string
}

type FileStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

var _ ports.FileStorage = (*FileStorage)(nil)

// NewFileStorage connects to MinIO and creates the bucket when missing.
func NewFileStorage(ctx context.Context, cfg Config) (*FileStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String()
	}
	return &FileStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// ResolvePictureURL uploads the file under a random name and returns its URL.
func (s *FileStorage) ResolvePictureURL(ctx context.Context, file ports.UploadedFile) (string, error) {
	objectName := ObjectName(file.Filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, file.Content, file.Size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectName), nil
}

func (s *FileStorage) DeleteFile(ctx context.Context, fileURL string) error {
	objectName, err := ObjectFromURL(fileURL, s.bucket)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ObjectName builds a collision free object name keeping the file extension.
func ObjectName(filename string) string {
	return fmt.Sprintf("%s/%s%s", objectPrefix, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

// ObjectFromURL extracts the object name from a URL built by
// ResolvePictureURL.
func ObjectFromURL(fileURL, bucket string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url: %w", err)
	}
	prefix := "/" + bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) || len(u.Path) == len(prefix) {
		return "", fmt.Errorf("file url %q is not in bucket %s", fileURL, bucket)
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}
