package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// Browser lists and fetches Drive files and resolves folder paths.
type Browser interface {
	Source
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type Handler struct {
	browser       Browser
	ingestService *IngestService
	folderID      string
}

// NewHandler serves folderID when a request names no folder.
func NewHandler(browser Browser, ingestService *IngestService, folderID string) *Handler {
	return &Handler{
		browser:       browser,
		ingestService: ingestService,
		folderID:      folderID,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/drive/ingest/folder", h.IngestFolder).Methods("POST")
}

func (h *Handler) resolveFolder(r *http.Request) (string, error) {
	query := r.URL.Query()
	if folderPath := query.Get("path"); folderPath != "" {
		return h.browser.FindFolderByPath(r.Context(), folderPath)
	}
	if folderID := query.Get("folderId"); folderID != "" {
		return folderID, nil
	}
	return h.folderID, nil
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.resolveFolder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	files, err := h.browser.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []*File{}
	}

	writeJSON(w, http.StatusOK, files)
}

// DownloadFile returns one sheet of a Drive workbook as CSV.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	f, err := h.browser.GetFile(r.Context(), fileID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !f.IsWorkbook() {
		http.Error(w, fmt.Sprintf("%s is not a workbook", f.Name), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := h.browser.Fetch(r.Context(), f, &buf); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	var body io.Reader = &buf
	if !strings.EqualFold(filepath.Ext(f.LocalName()), ".csv") {
		var out bytes.Buffer
		if err := writeSheetCSV(&buf, r.URL.Query().Get("sheet"), &out); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		body = &out
	}

	name := strings.TrimSuffix(f.LocalName(), filepath.Ext(f.LocalName())) + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, body); err != nil {
		log.Warn().Err(err).Str("file", f.Name).Msg("drive: write csv response failed")
	}
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	report, err := h.ingestService.IngestFile(r.Context(), fileID)
	if errors.Is(err, domain.ErrWorkbookRejected) {
		report.Error = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) IngestFolder(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.resolveFolder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	reports, err := h.ingestService.IngestFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"folder_id": folderID, "reports": reports})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("drive: encode response failed")
	}
}
