package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	// Concurrency bounds parallel downloads; defaults to 4.
	Concurrency int
}

// Downloader pulls the workbooks of a Drive folder to local disk.
type Downloader struct {
	source Source
}

// NewDownloader creates a new Downloader.
func NewDownloader(s Source) *Downloader {
	return &Downloader{source: s}
}

// DownloadFolder downloads every workbook in the folder into DownloadDir
// and returns the local paths sorted by name. Google Sheets are exported as
// xlsx so every sheet survives; other files are skipped.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var workbooks []*File
	for _, f := range files {
		if f.IsWorkbook() {
			workbooks = append(workbooks, f)
		}
	}

	localPaths := make([]string, len(workbooks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, f := range workbooks {
		i, f := i, f
		g.Go(func() error {
			path := filepath.Join(opts.DownloadDir, f.LocalName())
			if err := d.downloadTo(gctx, f, path); err != nil {
				return err
			}
			localPaths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(localPaths)
	log.Info().
		Str("folder", opts.FolderID).
		Int("files", len(localPaths)).
		Int("skipped", len(files)-len(workbooks)).
		Msg("drive: downloaded workbooks")
	return localPaths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", path, err)
	}
	if err := d.source.Fetch(ctx, f, out); err != nil {
		out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}
