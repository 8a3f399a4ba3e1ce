package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
	"github.com/andresuchdata/checkstock/internal/pipeline"
	"github.com/andresuchdata/checkstock/internal/pipeline/checkstock"
)

type memorySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	entries  []domain.LedgerEntry
}

func (s *memorySink) AppendBatch(_ context.Context, entries []domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.entries = append(s.entries, entries...)
	return nil
}

type recordingTracker struct {
	pipeline.NopTracker
	mu   sync.Mutex
	runs []pipeline.IngestRun
	jobs map[string]pipeline.SheetJobStatus
}

func (t *recordingTracker) UpdateRun(_ context.Context, run *pipeline.IngestRun) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs = append(t.runs, *run)
	return nil
}

func (t *recordingTracker) UpdateSheetJob(_ context.Context, job *pipeline.SheetJob) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.jobs == nil {
		t.jobs = map[string]pipeline.SheetJobStatus{}
	}
	t.jobs[job.SheetName] = job.Status
	return nil
}

var today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func testConfig() pipeline.PipelineConfig {
	cfg := pipeline.DefaultPipelineConfig("test")
	cfg.WorkerCount = 3
	cfg.BatchSize = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func newCheckStock() pipeline.Pipeline {
	opts := checkstock.DefaultOptions()
	opts.Now = func() time.Time { return today }
	return checkstock.NewCheckStockPipeline(opts)
}

// stockSheet has one marker column and a row per lot.
func stockSheet(name, material string, lots ...string) grid.Sheet {
	rows := [][]string{
		{"LOC", "", ""},
		{material, "", ""},
	}
	for _, lot := range lots {
		rows = append(rows, []string{lot, "10", "250"})
	}
	return grid.Sheet{Name: name, Grid: grid.FromStrings(rows)}
}

func TestProcessWorkbookSkipsRejectedSheets(t *testing.T) {
	sink := &memorySink{}
	tracker := &recordingTracker{}
	w := pipeline.NewWorker(newCheckStock(), testConfig(), tracker, sink)

	wb := &grid.Workbook{Name: "kho.xlsx", Sheets: []grid.Sheet{
		stockSheet("K1", "Bột Mì", "A1", "A2"),
		{Name: "Notes", Grid: grid.FromStrings([][]string{{"ghi chú"}})},
		stockSheet("K2", "Đường", "B1"),
	}}

	report, entries, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)

	require.Len(t, report.Sheets, 3)
	assert.Equal(t, domain.SheetOK, report.Sheets[0].Status)
	assert.Equal(t, domain.SheetRejected, report.Sheets[1].Status)
	assert.Contains(t, report.Sheets[1].Error, "Notes")
	assert.Equal(t, domain.SheetOK, report.Sheets[2].Status)
	assert.False(t, report.Rejected())
	assert.Equal(t, 3, report.Entries)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{entries[0].Lot, entries[1].Lot, entries[2].Lot})
	for _, e := range entries {
		assert.Equal(t, report.BatchID, e.BatchID)
		assert.Equal(t, pipeline.EntryID(report.BatchID, e.SourceSheet, e.SourceRow, e.SourceColumn), e.ID)
	}

	assert.Equal(t, entries, sink.entries, "sink sees entries in sheet order")
	assert.Equal(t, pipeline.SheetJobFailed, tracker.jobs["Notes"])
	assert.Equal(t, pipeline.SheetJobCompleted, tracker.jobs["K2"])
	require.NotEmpty(t, tracker.runs)
	assert.Equal(t, pipeline.StatusCompleted, tracker.runs[len(tracker.runs)-1].Status)
}

func TestProcessWorkbookAllRejected(t *testing.T) {
	tracker := &recordingTracker{}
	w := pipeline.NewWorker(newCheckStock(), testConfig(), tracker, nil)

	wb := &grid.Workbook{Name: "empty.xlsx", Sheets: []grid.Sheet{
		{Name: "Sheet1", Grid: grid.New(nil)},
	}}

	report, entries, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)

	assert.Empty(t, entries)
	assert.True(t, report.Rejected())
	assert.Equal(t, pipeline.StatusFailed, tracker.runs[len(tracker.runs)-1].Status)
}

type stubPipeline struct {
	err error
}

func (stubPipeline) Name() string              { return "stub" }
func (stubPipeline) Validate(grid.Sheet) error { return nil }
func (p stubPipeline) Transform(_ context.Context, s grid.Sheet) (pipeline.SheetOutput, error) {
	return pipeline.SheetOutput{Sheet: s.Name, HeaderRow: 3}, p.err
}

func TestProcessWorkbookNoRecords(t *testing.T) {
	w := pipeline.NewWorker(stubPipeline{err: domain.ErrEmptySegmentSet}, testConfig(), nil, nil)

	report, _, err := w.ProcessWorkbook(context.Background(), &grid.Workbook{
		Name:   "x.csv",
		Sheets: []grid.Sheet{{Name: "x", Grid: grid.New(nil)}},
	})
	require.NoError(t, err)

	require.Len(t, report.Sheets, 1)
	assert.Equal(t, domain.SheetNoRecords, report.Sheets[0].Status)
	assert.Equal(t, 3, report.Sheets[0].HeaderRow)
	assert.Empty(t, report.Sheets[0].Error)
}

func TestProcessWorkbookRetriesSink(t *testing.T) {
	sink := &memorySink{failures: 2}
	cfg := testConfig()
	cfg.BatchSize = 100
	w := pipeline.NewWorker(newCheckStock(), cfg, nil, sink)

	wb := &grid.Workbook{Name: "kho.xlsx", Sheets: []grid.Sheet{stockSheet("K1", "Muối", "C1")}}
	_, entries, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)

	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, entries, sink.entries)
}

func TestProcessWorkbookSinkExhausted(t *testing.T) {
	sink := &memorySink{failures: 100}
	cfg := testConfig()
	cfg.RetryAttempts = 1
	cfg.BatchSize = 100
	tracker := &recordingTracker{}
	w := pipeline.NewWorker(newCheckStock(), cfg, tracker, sink)

	wb := &grid.Workbook{Name: "kho.xlsx", Sheets: []grid.Sheet{stockSheet("K1", "Muối", "C1")}}
	_, entries, err := w.ProcessWorkbook(context.Background(), wb)

	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, pipeline.StatusFailed, tracker.runs[len(tracker.runs)-1].Status)
}

func TestProcessWorkbookMetrics(t *testing.T) {
	w := pipeline.NewWorker(newCheckStock(), testConfig(), nil, nil)

	wb := &grid.Workbook{Name: "kho.xlsx", Sheets: []grid.Sheet{
		stockSheet("K1", "Muối", "C1", "C2"),
		{Name: "blank", Grid: grid.New(nil)},
	}}
	_, _, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)

	m := w.Metrics()
	assert.Equal(t, int64(1), m.SheetsProcessed)
	assert.Equal(t, int64(2), m.EntriesProcessed)
	assert.Equal(t, int64(1), m.ErrorCount)
}

func TestEntryIDIsStable(t *testing.T) {
	w := pipeline.NewWorker(newCheckStock(), testConfig(), nil, nil)
	wb := &grid.Workbook{Name: "kho.xlsx", Sheets: []grid.Sheet{stockSheet("K1", "Muối", "C1")}}

	r1, e1, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)
	r2, e2, err := w.ProcessWorkbook(context.Background(), wb)
	require.NoError(t, err)

	assert.NotEqual(t, r1.BatchID, r2.BatchID)
	assert.NotEqual(t, e1[0].ID, e2[0].ID)
	assert.Equal(t, pipeline.EntryID(r1.BatchID, "K1", 2, 0), e1[0].ID)
}

func TestSnapshotDateFromName(t *testing.T) {
	cases := map[string]string{
		"check_stock_2024-03-05.xlsx":       "2024-03-05",
		"/data/kho/CHECKSTOCK_20240301.csv": "2024-03-01",
		"ton_kho_2024_02_29.xlsx":           "2024-02-29",
	}
	for name, want := range cases {
		got, ok := pipeline.SnapshotDateFromName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got.Format("2006-01-02"), name)
	}

	_, ok := pipeline.SnapshotDateFromName("kho_tong.xlsx")
	assert.False(t, ok)
	_, ok = pipeline.SnapshotDateFromName("kho_2024-13-40.xlsx")
	assert.False(t, ok)
}

func TestOrderBySnapshotDate(t *testing.T) {
	files := []string{"notes.csv", "kho_2024-03-05.xlsx", "misc.xlsx", "kho_20240301.xlsx"}

	got := pipeline.OrderBySnapshotDate(files)

	assert.Equal(t, []string{"kho_20240301.xlsx", "kho_2024-03-05.xlsx", "notes.csv", "misc.xlsx"}, got)
	assert.Equal(t, "notes.csv", files[0], "input is left untouched")
}

func TestOrchestratorRun(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	later := write("kho_2024-03-05.csv", "LOC,,\nĐường,,\nB1,4,200\n")
	earlier := write("kho_2024-03-01.csv", "LOC,,\nBột Mì,,\nA1,20,500\nA2,2,50\n")
	broken := write("kho.pdf", "%PDF")

	sink := &memorySink{}
	o := pipeline.NewOrchestrator(testConfig(), nil, sink)
	reports, err := o.Run(context.Background(), newCheckStock(), []string{later, broken, earlier})
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, "kho_2024-03-01.csv", reports[0].Workbook)
	assert.Equal(t, 2, reports[0].Entries)
	assert.Equal(t, "kho_2024-03-05.csv", reports[1].Workbook)
	assert.Equal(t, 1, reports[1].Entries)
	assert.Equal(t, "kho.pdf", reports[2].Workbook)
	assert.NotEmpty(t, reports[2].Error)

	require.Len(t, sink.entries, 3)
	assert.Equal(t, "BOT MI", sink.entries[0].Material)
	assert.Equal(t, "DUONG", sink.entries[2].Material)
	assert.Equal(t, "kho_2024-03-01", sink.entries[0].SourceSheet)
}
