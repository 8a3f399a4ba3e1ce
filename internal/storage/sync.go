package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Downloader pulls workbooks from a bucket prefix into a local directory.
type Downloader struct {
	client  ObjectStorage
	destDir string
}

// NewDownloader creates the destination directory if needed.
func NewDownloader(client ObjectStorage, destDir string) (*Downloader, error) {
	if destDir == "" {
		destDir = "./data/tmp/storage"
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}
	return &Downloader{client: client, destDir: destDir}, nil
}

// Download fetches every workbook under prefix, or only override when set,
// and returns the local paths sorted by name.
func (d *Downloader) Download(ctx context.Context, prefix, override string) ([]string, error) {
	var keys []string

	if override != "" {
		keys = []string{resolveObjectKey(prefix, override)}
	} else {
		listPrefix := strings.TrimSpace(prefix)
		objects, err := d.client.ListObjects(ctx, listPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
		}
		for _, obj := range objects {
			if IsWorkbook(obj.Key) {
				keys = append(keys, obj.Key)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no workbooks found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.destDir, objectRelativePath(prefix, key))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	log.Info().Int("files", len(localPaths)).Str("prefix", prefix).Msg("downloaded workbooks")
	return localPaths, nil
}

// IsWorkbook reports whether name has an extension the grid readers accept.
func IsWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// ArchiveKey is where an uploaded workbook is kept:
// <prefix>/uploads/yyyy/mm/dd/<batch>_<name>.
func ArchiveKey(prefix, batchID, name string, at time.Time) string {
	base := strings.ReplaceAll(filepath.Base(name), " ", "_")
	return path.Join(strings.Trim(prefix, "/"), "uploads", at.UTC().Format("2006/01/02"), batchID+"_"+base)
}

// Archive uploads the raw bytes of an ingested workbook.
func Archive(ctx context.Context, client ObjectStorage, prefix, batchID, name string, data []byte, at time.Time) (string, error) {
	key := ArchiveKey(prefix, batchID, name, at)
	if err := client.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

func resolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}
