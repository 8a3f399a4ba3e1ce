package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/checkstock/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations used to pull
// workbooks and archive uploads.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New builds the client selected by cfg.Provider.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "sevalla", "s3":
		return NewSevallaClient(SevallaConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case "minio":
		return NewMinioClient(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
