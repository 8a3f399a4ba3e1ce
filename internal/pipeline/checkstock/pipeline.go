// Package checkstock reads "Check-stock" warehouse sheets: a banner row of
// marker cells above a material sub-header, each marker anchoring a block of
// thirteen columns that repeats once per material slot.
package checkstock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
	"github.com/andresuchdata/checkstock/internal/pipeline"
)

// PipelineName identifies check-stock runs in the ingest tracking tables.
const PipelineName = "checkstock"

// Options configure the parser.
type Options struct {
	MarkerToken string
	ScanDepth   int
	// Detector replaces marker-based header detection when set.
	Detector HeaderDetector
	Now      func() time.Time
}

// DefaultOptions returns the layout used by the warehouse exports.
func DefaultOptions() Options {
	return Options{
		MarkerToken: DefaultMarkerToken,
		ScanDepth:   DefaultScanDepth,
		Now:         time.Now,
	}
}

// CheckStockPipeline implements the generic pipeline.Pipeline interface for
// check-stock sheets.
type CheckStockPipeline struct {
	opts   Options
	detect HeaderDetector
}

// NewCheckStockPipeline creates a new check-stock pipeline instance.
func NewCheckStockPipeline(opts Options) *CheckStockPipeline {
	if strings.TrimSpace(opts.MarkerToken) == "" {
		opts.MarkerToken = DefaultMarkerToken
	}
	if opts.ScanDepth <= 0 {
		opts.ScanDepth = DefaultScanDepth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	detect := opts.Detector
	if detect == nil {
		detect = MarkerDetector(opts.MarkerToken, opts.ScanDepth)
	}

	return &CheckStockPipeline{opts: opts, detect: detect}
}

// Name returns the unique identifier of this pipeline.
func (p *CheckStockPipeline) Name() string {
	return PipelineName
}

// Validate performs basic validation on the input sheet.
func (p *CheckStockPipeline) Validate(sheet grid.Sheet) error {
	if sheet.Grid == nil {
		return fmt.Errorf("sheet %q has no grid", sheet.Name)
	}
	return nil
}

// Transform locates the header, segments the columns and turns every
// non-empty (row, segment) pair into a count entry.
//
// domain.ErrHeaderNotFound rejects the sheet; domain.ErrEmptySegmentSet
// means the sheet simply has no records. HeaderRow is filled in either way
// once known.
func (p *CheckStockPipeline) Transform(ctx context.Context, sheet grid.Sheet) (pipeline.SheetOutput, error) {
	out := pipeline.SheetOutput{Sheet: sheet.Name, HeaderRow: -1}
	g := sheet.Grid

	header, err := LocateHeader(g, p.detect)
	if err != nil {
		return out, err
	}
	out.HeaderRow = header

	segments, err := SegmentColumns(g.Row(header), g.Row(header+1), g.Width(), p.opts.MarkerToken)
	if err != nil {
		return out, err
	}
	out.Segments = len(segments)
	out.Degraded = segments[0].Degraded

	today := p.opts.Now()
	candidates := ExtractCandidates(g, header, segments)
	entries := make([]domain.LedgerEntry, 0, len(candidates))
	for i, c := range candidates {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return out, err
			}
		}
		entry, malformed := Normalize(c, sheet.Name, today)
		out.MalformedCells += malformed
		entries = append(entries, entry)
	}
	out.Entries = entries

	return out, nil
}
