package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/pipeline"
)

// Source is the part of the Drive API the ingester needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	Fetch(ctx context.Context, f *File, w io.Writer) error
}

// Ingester appends a decoded workbook to the ledger.
type Ingester interface {
	IngestUpload(ctx context.Context, name string, r io.Reader) (domain.IngestReport, error)
}

type IngestService struct {
	source Source
	ledger Ingester
}

func NewIngestService(source Source, ledger Ingester) *IngestService {
	return &IngestService{
		source: source,
		ledger: ledger,
	}
}

// IngestFile streams one Drive file into the ledger.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (domain.IngestReport, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return domain.IngestReport{}, err
	}
	return s.ingest(ctx, f)
}

// IngestFolder ingests every workbook of a folder, oldest snapshot first.
// Rejected workbooks are reported and skipped.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) ([]domain.IngestReport, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var workbooks []*File
	for _, f := range files {
		if f.IsWorkbook() {
			workbooks = append(workbooks, f)
		}
	}
	sort.SliceStable(workbooks, func(i, j int) bool {
		di, iok := pipeline.SnapshotDateFromName(workbooks[i].Name)
		dj, jok := pipeline.SnapshotDateFromName(workbooks[j].Name)
		if iok && jok {
			return di.Before(dj)
		}
		return iok && !jok
	})

	reports := make([]domain.IngestReport, 0, len(workbooks))
	for _, f := range workbooks {
		report, err := s.ingest(ctx, f)
		if errors.Is(err, domain.ErrWorkbookRejected) {
			log.Warn().Str("file", f.Name).Msg("drive: workbook rejected")
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *IngestService) ingest(ctx context.Context, f *File) (domain.IngestReport, error) {
	if !f.IsWorkbook() {
		return domain.IngestReport{Workbook: f.Name}, fmt.Errorf("file %s (%s) is not a workbook", f.Name, f.MimeType)
	}

	// 1. Download file from Drive
	pr, pw := io.Pipe()
	go func() {
		err := s.source.Fetch(ctx, f, pw)
		pw.CloseWithError(err)
	}()

	// 2. Hand the stream to the ledger
	report, err := s.ledger.IngestUpload(ctx, f.LocalName(), pr)
	pr.Close()
	if err != nil {
		return report, fmt.Errorf("drive file %s: %w", f.Name, err)
	}

	log.Info().
		Str("file", f.Name).
		Str("batch_id", report.BatchID.String()).
		Int("entries", report.Entries).
		Msg("drive: workbook ingested")
	return report, nil
}
