package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

// Worker runs a pipeline over the sheets of a workbook
type Worker struct {
	pipeline Pipeline
	config   PipelineConfig
	tracker  RunTracker
	sink     EntrySink
	now      func() time.Time

	mu      sync.Mutex
	metrics PipelineMetrics
}

// NewWorker creates a new pipeline worker. A nil sink parses without
// persisting anything; a nil tracker disables run tracking.
func NewWorker(p Pipeline, config PipelineConfig, tracker RunTracker, sink EntrySink) *Worker {
	if tracker == nil {
		tracker = NopTracker{}
	}
	return &Worker{
		pipeline: p,
		config:   config,
		tracker:  tracker,
		sink:     sink,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (w *Worker) SetClock(now func() time.Time) {
	w.now = now
}

// sheetOutcome is what a worker goroutine reports back for one sheet.
type sheetOutcome struct {
	index   int
	report  domain.SheetReport
	entries []domain.LedgerEntry
}

// ProcessWorkbook transforms every sheet of wb and appends the resulting
// entries to the sink. A sheet that fails is reported and skipped; the
// returned error is reserved for run-level failures such as an unreachable
// sink or a cancelled context. Entries are returned in sheet order.
func (w *Worker) ProcessWorkbook(ctx context.Context, wb *grid.Workbook) (domain.IngestReport, []domain.LedgerEntry, error) {
	batchID := uuid.New()
	report := domain.IngestReport{
		BatchID:   batchID,
		Workbook:  wb.Name,
		StartedAt: w.now(),
	}

	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Str("workbook", wb.Name).
		Int("sheets", len(wb.Sheets)).
		Msg("starting workbook ingestion")

	run := &IngestRun{
		PipelineName: w.pipeline.Name(),
		BatchID:      batchID,
		Workbook:     wb.Name,
		Status:       StatusPending,
		TotalSheets:  len(wb.Sheets),
		StartedAt:    report.StartedAt,
	}
	if err := w.tracker.CreateRun(ctx, run); err != nil {
		return report, nil, fmt.Errorf("failed to create ingest run: %w", err)
	}

	jobs := make([]*SheetJob, len(wb.Sheets))
	for i, sheet := range wb.Sheets {
		job := &SheetJob{
			IngestRunID: run.ID,
			SheetName:   sheet.Name,
			SheetIndex:  i,
			Status:      SheetJobQueued,
		}
		if err := w.tracker.CreateSheetJob(ctx, job); err != nil {
			return report, nil, fmt.Errorf("failed to create sheet job: %w", err)
		}
		jobs[i] = job
	}

	run.Status = StatusProcessing
	if err := w.tracker.UpdateRun(ctx, run); err != nil {
		return report, nil, fmt.Errorf("failed to update ingest run: %w", err)
	}

	aggregator := NewStreamingAggregator(w.pipeline.Name(), w.config, w.appendWithRetry)

	outcomes, err := w.processSheetsParallel(ctx, batchID, wb.Sheets, jobs, aggregator)
	if err != nil {
		w.failRun(ctx, run, err)
		return report, nil, err
	}

	if err := aggregator.Finalize(ctx); err != nil {
		w.failRun(ctx, run, err)
		return report, nil, fmt.Errorf("failed to finalize aggregation: %w", err)
	}
	_, _, flushed := aggregator.GetBufferStats()
	log.Debug().Str("workbook", wb.Name).Int("flushed", flushed).Msg("aggregation finalized")

	var entries []domain.LedgerEntry
	report.Sheets = make([]domain.SheetReport, len(outcomes))
	for i, o := range outcomes {
		report.Sheets[i] = o.report
		entries = append(entries, o.entries...)
	}
	report.Entries = len(entries)
	report.FinishedAt = w.now()

	run.Status = StatusCompleted
	run.ProcessedSheets = len(outcomes)
	run.TotalEntries = len(entries)
	if report.Rejected() {
		run.Status = StatusFailed
		run.ErrorMessage = domain.ErrWorkbookRejected.Error()
	}
	completed := report.FinishedAt
	run.CompletedAt = &completed
	if err := w.tracker.UpdateRun(ctx, run); err != nil {
		return report, entries, fmt.Errorf("failed to complete ingest run: %w", err)
	}

	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Str("workbook", wb.Name).
		Str("batch_id", batchID.String()).
		Int("entries", len(entries)).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("workbook ingestion completed")

	return report, entries, nil
}

// processSheetsParallel transforms sheets on a worker pool and commits them
// to the aggregator strictly in sheet order, so the sink sees the same
// sequence on every run.
func (w *Worker) processSheetsParallel(
	ctx context.Context,
	batchID uuid.UUID,
	sheets []grid.Sheet,
	jobs []*SheetJob,
	aggregator *StreamingAggregator,
) ([]sheetOutcome, error) {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobChan := make(chan int, len(sheets))
	resultChan := make(chan sheetOutcome, len(sheets))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				resultChan <- w.processSheet(ctx, batchID, idx, sheets[idx], jobs[idx])
			}
		}()
	}

	for i := range sheets {
		jobChan <- i
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	outcomes := make([]sheetOutcome, len(sheets))
	done := make([]bool, len(sheets))
	next := 0
	var commitErr error
	for o := range resultChan {
		outcomes[o.index] = o
		done[o.index] = true
		for commitErr == nil && next < len(sheets) && done[next] {
			if err := aggregator.AddSheetEntries(ctx, outcomes[next].entries); err != nil {
				commitErr = fmt.Errorf("sheet %q: %w", sheets[next].Name, err)
				cancel()
			}
			next++
		}
	}

	if commitErr != nil {
		return nil, commitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processSheet validates and transforms a single sheet
func (w *Worker) processSheet(ctx context.Context, batchID uuid.UUID, idx int, sheet grid.Sheet, job *SheetJob) sheetOutcome {
	start := time.Now()
	out := sheetOutcome{
		index:  idx,
		report: domain.SheetReport{Sheet: sheet.Name, HeaderRow: -1},
	}

	if err := ctx.Err(); err != nil {
		return w.markJobFailed(ctx, job, out, err)
	}

	job.Status = SheetJobProcessing
	if err := w.tracker.UpdateSheetJob(ctx, job); err != nil {
		log.Warn().Err(err).Str("sheet", sheet.Name).Msg("failed to update sheet job")
	}

	if err := w.pipeline.Validate(sheet); err != nil {
		return w.markJobFailed(ctx, job, out, domain.NewSheetError(sheet.Name, "validate", err))
	}

	res, err := w.pipeline.Transform(ctx, sheet)
	out.report.HeaderRow = res.HeaderRow
	out.report.Segments = res.Segments
	out.report.Degraded = res.Degraded
	out.report.MalformedCells = res.MalformedCells

	switch {
	case errors.Is(err, domain.ErrEmptySegmentSet):
		out.report.Status = domain.SheetNoRecords
		job.Status = SheetJobNoRecords
	case err != nil:
		return w.markJobFailed(ctx, job, out, domain.NewSheetError(sheet.Name, "transform", err))
	case len(res.Entries) == 0:
		out.report.Status = domain.SheetNoRecords
		job.Status = SheetJobNoRecords
	default:
		out.report.Status = domain.SheetOK
		job.Status = SheetJobCompleted
	}

	createdAt := w.now()
	for i := range res.Entries {
		e := &res.Entries[i]
		e.BatchID = batchID
		e.ID = EntryID(batchID, sheet.Name, e.SourceRow, e.SourceColumn)
		e.CreatedAt = createdAt
	}
	out.entries = res.Entries
	out.report.Entries = len(res.Entries)

	if res.Degraded {
		log.Warn().Str("sheet", sheet.Name).Msg("no marker column in header, using sub-header columns")
	}
	if res.MalformedCells > 0 {
		log.Debug().Str("sheet", sheet.Name).Int("malformed", res.MalformedCells).Msg("malformed cells read as zero")
	}

	processed := time.Now()
	job.Entries = len(res.Entries)
	job.ProcessedAt = &processed
	if err := w.tracker.UpdateSheetJob(ctx, job); err != nil {
		log.Warn().Err(err).Str("sheet", sheet.Name).Msg("failed to update sheet job")
	}

	w.recordMetrics(len(res.Entries), time.Since(start), false)

	log.Debug().
		Str("pipeline", w.pipeline.Name()).
		Str("sheet", sheet.Name).
		Int("entries", len(res.Entries)).
		Dur("elapsed", time.Since(start)).
		Msg("sheet transformed")

	return out
}

// markJobFailed records a rejected sheet. The rest of the workbook goes on.
func (w *Worker) markJobFailed(ctx context.Context, job *SheetJob, out sheetOutcome, err error) sheetOutcome {
	out.report.Status = domain.SheetRejected
	out.report.Error = err.Error()

	job.Status = SheetJobFailed
	job.ErrorMessage = err.Error()
	if uerr := w.tracker.UpdateSheetJob(context.WithoutCancel(ctx), job); uerr != nil {
		log.Warn().Err(uerr).Str("sheet", job.SheetName).Msg("failed to update sheet job")
	}

	w.recordMetrics(0, 0, true)
	log.Warn().Err(err).Str("pipeline", w.pipeline.Name()).Str("sheet", job.SheetName).Msg("sheet rejected")

	return out
}

// appendWithRetry flushes to the sink, retrying transient failures.
func (w *Worker) appendWithRetry(ctx context.Context, entries []domain.LedgerEntry) error {
	if w.sink == nil {
		return nil
	}

	var err error
	for attempt := 0; attempt <= w.config.RetryAttempts; attempt++ {
		if err = w.sink.AppendBatch(ctx, entries); err == nil {
			return nil
		}
		if attempt == w.config.RetryAttempts {
			break
		}

		log.Warn().Err(err).
			Str("pipeline", w.pipeline.Name()).
			Int("attempt", attempt+1).
			Int("max_attempts", w.config.RetryAttempts).
			Msg("ledger append failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.RetryBackoff):
		}
	}

	return fmt.Errorf("append %d entries: %w", len(entries), err)
}

func (w *Worker) failRun(ctx context.Context, run *IngestRun, err error) {
	run.Status = StatusFailed
	run.ErrorMessage = err.Error()
	now := w.now()
	run.CompletedAt = &now
	if uerr := w.tracker.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		log.Warn().Err(uerr).Int64("run_id", run.ID).Msg("failed to mark ingest run failed")
	}
}

func (w *Worker) recordMetrics(entries int, latency time.Duration, failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if failed {
		w.metrics.ErrorCount++
		return
	}
	n := w.metrics.SheetsProcessed
	w.metrics.AverageLatency = time.Duration((int64(w.metrics.AverageLatency)*n + int64(latency)) / (n + 1))
	w.metrics.SheetsProcessed++
	w.metrics.EntriesProcessed += int64(entries)
	w.metrics.LastProcessedAt = time.Now()
}

// Metrics returns a copy of the worker counters
func (w *Worker) Metrics() PipelineMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// EntryID derives a stable entry id from the batch and the source cell, so
// that retried appends of the same batch are idempotent.
func EntryID(batchID uuid.UUID, sheet string, row, col int) uuid.UUID {
	return uuid.NewSHA1(batchID, []byte(fmt.Sprintf("%s/%d/%d", sheet, row, col)))
}
