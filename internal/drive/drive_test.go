package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/checkstock/internal/domain"
)

type fakeDrive struct {
	files   []*File
	content map[string][]byte
}

func (d *fakeDrive) ListFiles(context.Context, string) ([]*File, error) {
	return d.files, nil
}

func (d *fakeDrive) GetFile(_ context.Context, id string) (*File, error) {
	for _, f := range d.files {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
}

func (d *fakeDrive) Fetch(_ context.Context, f *File, w io.Writer) error {
	_, err := w.Write(d.content[f.ID])
	return err
}

func (d *fakeDrive) FindFolderByPath(context.Context, string) (string, error) {
	return "folder-1", nil
}

type fakeIngester struct {
	names  []string
	bodies []string
	reject map[string]bool
}

func (i *fakeIngester) IngestUpload(_ context.Context, name string, r io.Reader) (domain.IngestReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.IngestReport{}, err
	}
	i.names = append(i.names, name)
	i.bodies = append(i.bodies, string(data))

	report := domain.IngestReport{BatchID: uuid.New(), Workbook: name, Entries: 1}
	if i.reject[name] {
		report.Entries = 0
		return report, fmt.Errorf("%s: %w", name, domain.ErrWorkbookRejected)
	}
	return report, nil
}

func testWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Kho A"))
	require.NoError(t, f.SetSheetRow("Kho A", "A1", &[]interface{}{"LOC", "So bao", "Kg"}))
	require.NoError(t, f.SetSheetRow("Kho A", "A2", &[]interface{}{"A1", 10, 250}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestFileIsWorkbook(t *testing.T) {
	tests := []struct {
		file     File
		workbook bool
		local    string
	}{
		{File{Name: "ton kho", MimeType: mimeSpreadsheet}, true, "ton kho.xlsx"},
		{File{Name: "kho.xlsx", MimeType: mimeXLSX}, true, "kho.xlsx"},
		{File{Name: "kho.csv", MimeType: "text/csv"}, true, "kho.csv"},
		{File{Name: "anh.png", MimeType: "image/png"}, false, "anh.png"},
		{File{Name: "Reports", MimeType: mimeFolder}, false, "Reports"},
	}

	for _, tt := range tests {
		t.Run(tt.file.Name, func(t *testing.T) {
			assert.Equal(t, tt.workbook, tt.file.IsWorkbook())
			assert.Equal(t, tt.local, tt.file.LocalName())
		})
	}
}

func TestIngestFolderOrdersBySnapshotDate(t *testing.T) {
	src := &fakeDrive{
		files: []*File{
			{ID: "3", Name: "kho 2024-03-10.csv"},
			{ID: "x", Name: "notes.txt"},
			{ID: "1", Name: "kho 2024-03-01.csv"},
			{ID: "2", Name: "kho 2024-03-05", MimeType: mimeSpreadsheet},
		},
		content: map[string][]byte{"1": []byte("one"), "2": []byte("two"), "3": []byte("three")},
	}
	ing := &fakeIngester{reject: map[string]bool{"kho 2024-03-05.xlsx": true}}

	reports, err := NewIngestService(src, ing).IngestFolder(context.Background(), "folder-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"kho 2024-03-01.csv", "kho 2024-03-05.xlsx", "kho 2024-03-10.csv"}, ing.names)
	assert.Equal(t, []string{"one", "two", "three"}, ing.bodies)
	require.Len(t, reports, 3)
	assert.Empty(t, reports[0].Error)
	assert.Contains(t, reports[1].Error, domain.ErrWorkbookRejected.Error())
	assert.Empty(t, reports[2].Error)
}

func TestIngestFileRejectsNonWorkbook(t *testing.T) {
	src := &fakeDrive{files: []*File{{ID: "p", Name: "anh.png", MimeType: "image/png"}}}
	ing := &fakeIngester{}

	_, err := NewIngestService(src, ing).IngestFile(context.Background(), "p")
	require.Error(t, err)
	assert.Empty(t, ing.names)
}

func TestDownloadFolder(t *testing.T) {
	src := &fakeDrive{
		files: []*File{
			{ID: "1", Name: "b.csv"},
			{ID: "2", Name: "a", MimeType: mimeSpreadsheet},
			{ID: "3", Name: "readme.md"},
		},
		content: map[string][]byte{"1": []byte("csv"), "2": []byte("xlsx")},
	}
	dir := t.TempDir()

	paths, err := NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir, Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "a.xlsx"), filepath.Join(dir, "b.csv")}, paths)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(data))
}

func TestWriteSheetCSV(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSheetCSV(bytes.NewReader(testWorkbook(t)), "", &out))
	assert.Equal(t, "LOC,So bao,Kg\nA1,10,250\n", out.String())

	err := writeSheetCSV(bytes.NewReader(testWorkbook(t)), "missing", &out)
	assert.Error(t, err)
}

func newTestRouter(src *fakeDrive, ing *fakeIngester) *mux.Router {
	router := mux.NewRouter()
	NewHandler(src, NewIngestService(src, ing), "folder-1").RegisterRoutes(router)
	return router
}

func TestHandlerListFiles(t *testing.T) {
	src := &fakeDrive{files: []*File{{ID: "1", Name: "kho.csv"}}}
	router := newTestRouter(src, &fakeIngester{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files?path=Kho/2024", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var files []File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "kho.csv", files[0].Name)
}

func TestHandlerDownloadConvertsSheet(t *testing.T) {
	src := &fakeDrive{
		files:   []*File{{ID: "w", Name: "kho.xlsx", MimeType: mimeXLSX}},
		content: map[string][]byte{"w": testWorkbook(t)},
	}
	router := newTestRouter(src, &fakeIngester{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files/download?fileId=w&sheet=Kho+A", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "kho.csv")
	assert.Equal(t, "LOC,So bao,Kg\nA1,10,250\n", rec.Body.String())
}

func TestHandlerIngestRejectedWorkbook(t *testing.T) {
	src := &fakeDrive{
		files:   []*File{{ID: "n", Name: "notes.csv"}},
		content: map[string][]byte{"n": []byte("ghi chu")},
	}
	router := newTestRouter(src, &fakeIngester{reject: map[string]bool{"notes.csv": true}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/ingest?fileId=n", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var report domain.IngestReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "notes.csv", report.Workbook)
	assert.NotEmpty(t, report.Error)
}

func TestHandlerIngestRequiresFileID(t *testing.T) {
	router := newTestRouter(&fakeDrive{}, &fakeIngester{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/ingest", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
