package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStorage) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(_ context.Context, key, destPath string) error {
	m.mu.Lock()
	data := m.objects[key]
	m.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func TestDownloaderPullsWorkbooksOnly(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{
		"kho/2024/check_20240301.xlsx": []byte("x"),
		"kho/2024/check_20240302.csv":  []byte("LOC"),
		"kho/2024/readme.txt":          []byte("-"),
		"other/check.csv":              []byte("-"),
	}}
	dir := t.TempDir()

	d, err := NewDownloader(store, dir)
	require.NoError(t, err)

	paths, err := d.Download(context.Background(), "kho/", "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "2024", "check_20240301.xlsx"),
		filepath.Join(dir, "2024", "check_20240302.csv"),
	}, paths)
	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "LOC", string(data))
}

func TestDownloaderOverride(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{"kho/a.csv": []byte("a")}}
	d, err := NewDownloader(store, t.TempDir())
	require.NoError(t, err)

	paths, err := d.Download(context.Background(), "kho", "/a.csv")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "a.csv", filepath.Base(paths[0]))

	_, err = d.Download(context.Background(), "empty/", "")
	assert.Error(t, err)
}

func TestResolveObjectKey(t *testing.T) {
	assert.Equal(t, "kho/a.csv", resolveObjectKey("kho/", "a.csv"))
	assert.Equal(t, "kho/a.csv", resolveObjectKey("kho", "/kho/a.csv"))
	assert.Equal(t, "a.csv", resolveObjectKey("", "/a.csv"))
	assert.Equal(t, "kho", resolveObjectKey(" kho ", ""))
}

func TestArchive(t *testing.T) {
	store := &memoryStorage{}
	at := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)

	key, err := Archive(context.Background(), store, "/checkstock/", "b1", "kho tong.xlsx", []byte("data"), at)
	require.NoError(t, err)

	assert.Equal(t, "checkstock/uploads/2024/03/05/b1_kho_tong.xlsx", key)
	assert.Equal(t, []byte("data"), store.objects[key])
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("http://minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure = splitEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}
