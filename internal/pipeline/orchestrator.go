package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

// Orchestrator coordinates running a Pipeline over a set of local workbook
// files, oldest snapshot first.
type Orchestrator struct {
	cfg     PipelineConfig
	tracker RunTracker
	sink    EntrySink
	makeW   func(p Pipeline, cfg PipelineConfig, tracker RunTracker, sink EntrySink) *Worker
	read    func(path string) (*grid.Workbook, error)
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg PipelineConfig, tracker RunTracker, sink EntrySink) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		tracker: tracker,
		sink:    sink,
		makeW:   NewWorker,
		read:    grid.ReadFile,
	}
}

// Run ingests files ordered by the snapshot date in their names. Files
// without a date keep their relative order after the dated ones. A file
// that cannot be decoded is reported and skipped.
func (o *Orchestrator) Run(ctx context.Context, p Pipeline, files []string) ([]domain.IngestReport, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ordered := OrderBySnapshotDate(files)
	worker := o.makeW(p, o.cfg, o.tracker, o.sink)

	reports := make([]domain.IngestReport, 0, len(ordered))
	for _, path := range ordered {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		wb, err := o.read(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable workbook")
			reports = append(reports, domain.IngestReport{Workbook: filepath.Base(path), Error: err.Error()})
			continue
		}

		report, _, err := worker.ProcessWorkbook(ctx, wb)
		if err != nil {
			return reports, fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

var snapshotDatePattern = regexp.MustCompile(`(\d{4})[-_]?(\d{2})[-_]?(\d{2})`)

// SnapshotDateFromName finds a yyyymmdd or yyyy-mm-dd date in a file name.
func SnapshotDateFromName(name string) (time.Time, bool) {
	base := filepath.Base(name)
	for _, m := range snapshotDatePattern.FindAllStringSubmatch(base, -1) {
		t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OrderBySnapshotDate returns a copy of files sorted by embedded date.
func OrderBySnapshotDate(files []string) []string {
	out := append([]string(nil), files...)
	sort.SliceStable(out, func(i, j int) bool {
		di, iok := SnapshotDateFromName(out[i])
		dj, jok := SnapshotDateFromName(out[j])
		switch {
		case iok && jok:
			return di.Before(dj)
		case iok != jok:
			return iok
		}
		return false
	})
	return out
}
