package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection info for a MinIO or other S3 endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioClient implements ObjectStorage with minio-go.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient creates a client. The endpoint is host[:port] without a
// scheme; a scheme, if given, overrides UseSSL.
func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket must be provided")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

func (c *MinioClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var results []ObjectInfo
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list failed: %w", obj.Err)
		}
		results = append(results, ObjectInfo{Key: obj.Key, Size: obj.Size})
	}
	return results, nil
}

func (c *MinioClient) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := c.client.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("minio download %s failed: %w", key, err)
	}
	return nil
}

func (c *MinioClient) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("minio upload %s failed: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*MinioClient)(nil)

func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	}
	return endpoint, useSSL
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
