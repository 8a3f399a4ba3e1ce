package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	mimeFolder      = "application/vnd.google-apps.folder"
	mimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	mimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

// NewServiceFromFile reads service account credentials from path.
func NewServiceFromFile(ctx context.Context, path string) (*Service, error) {
	if path == "" {
		return nil, fmt.Errorf("drive credentials file is not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read drive credentials %s: %w", path, err)
	}
	return NewService(ctx, string(data))
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// IsWorkbook reports whether the file can be ingested: a native Google
// Sheet or an uploaded xlsx, xlsm or csv.
func (f *File) IsWorkbook() bool {
	if f.MimeType == mimeSpreadsheet {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// LocalName is the file name used once downloaded. Google Sheets are
// exported as xlsx.
func (f *File) LocalName() string {
	name := strings.ReplaceAll(f.Name, string(filepath.Separator), "_")
	if f.MimeType == mimeSpreadsheet && !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return name + ".xlsx"
	}
	return name
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	if folderID == "" {
		folderID = "root"
	}

	pageToken := ""
	for {
		call := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve files: %w", err)
		}

		for _, f := range result.Files {
			files = append(files, toFile(f))
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	return files, nil
}

func (s *Service) GetFile(ctx context.Context, fileID string) (*File, error) {
	f, err := s.srv.Files.Get(fileID).
		Fields("id, name, mimeType, modifiedTime, size").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get file %s: %w", fileID, err)
	}
	return toFile(f), nil
}

// Fetch copies the content of f to w, exporting Google Sheets as xlsx.
func (s *Service) Fetch(ctx context.Context, f *File, w io.Writer) error {
	var body io.ReadCloser
	if f.MimeType == mimeSpreadsheet {
		resp, err := s.srv.Files.Export(f.ID, mimeXLSX).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to export %s: %w", f.Name, err)
		}
		body = resp.Body
	} else {
		resp, err := s.srv.Files.Get(f.ID).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to download %s: %w", f.Name, err)
		}
		body = resp.Body
	}
	defer body.Close()

	_, err := io.Copy(w, body)
	return err
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	folders := strings.Split(path, "/")
	currentID := "root"

	for _, folder := range folders {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, strings.ReplaceAll(folder, "'", "\\'"), mimeFolder)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

func toFile(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
	}
}
