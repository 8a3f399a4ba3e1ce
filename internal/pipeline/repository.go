package pipeline

import (
	"context"
	"database/sql"
	"time"
)

// RunTracker records ingest runs and their sheet jobs.
type RunTracker interface {
	CreateRun(ctx context.Context, run *IngestRun) error
	UpdateRun(ctx context.Context, run *IngestRun) error
	CreateSheetJob(ctx context.Context, job *SheetJob) error
	UpdateSheetJob(ctx context.Context, job *SheetJob) error
}

// NopTracker is used when no database is configured.
type NopTracker struct{}

func (NopTracker) CreateRun(context.Context, *IngestRun) error     { return nil }
func (NopTracker) UpdateRun(context.Context, *IngestRun) error     { return nil }
func (NopTracker) CreateSheetJob(context.Context, *SheetJob) error { return nil }
func (NopTracker) UpdateSheetJob(context.Context, *SheetJob) error { return nil }

// Repository handles database operations for ingest tracking
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new ingest run record
func (r *Repository) CreateRun(ctx context.Context, run *IngestRun) error {
	query := `
		INSERT INTO ingest_runs (
			pipeline_name, batch_id, workbook, status, total_sheets,
			processed_sheets, total_entries, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.db.QueryRowContext(
		ctx, query,
		run.PipelineName, run.BatchID.String(), run.Workbook, run.Status, run.TotalSheets,
		run.ProcessedSheets, run.TotalEntries, run.StartedAt,
	).Scan(&run.ID)
}

// UpdateRun updates an existing ingest run
func (r *Repository) UpdateRun(ctx context.Context, run *IngestRun) error {
	query := `
		UPDATE ingest_runs
		SET status = $1, processed_sheets = $2, total_entries = $3,
		    completed_at = $4, error_message = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.ProcessedSheets, run.TotalEntries,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)

	return err
}

// GetRun retrieves an ingest run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*IngestRun, error) {
	query := `
		SELECT id, pipeline_name, batch_id, workbook, status, total_sheets,
		       processed_sheets, total_entries, started_at, completed_at, error_message
		FROM ingest_runs
		WHERE id = $1
	`

	run := &IngestRun{}
	var batchID string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.PipelineName, &batchID, &run.Workbook, &run.Status,
		&run.TotalSheets, &run.ProcessedSheets, &run.TotalEntries,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if err := run.BatchID.UnmarshalText([]byte(batchID)); err != nil {
		return nil, err
	}

	return run, nil
}

// CreateSheetJob creates a new sheet job record
func (r *Repository) CreateSheetJob(ctx context.Context, job *SheetJob) error {
	query := `
		INSERT INTO ingest_sheet_jobs (
			ingest_run_id, sheet_name, sheet_index, status, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return r.db.QueryRowContext(
		ctx, query,
		job.IngestRunID, job.SheetName, job.SheetIndex, job.Status, job.ErrorMessage,
	).Scan(&job.ID)
}

// UpdateSheetJob updates an existing sheet job
func (r *Repository) UpdateSheetJob(ctx context.Context, job *SheetJob) error {
	query := `
		UPDATE ingest_sheet_jobs
		SET status = $1, entries = $2, error_message = $3, processed_at = $4
		WHERE id = $5
	`

	_, err := r.db.ExecContext(
		ctx, query,
		job.Status, job.Entries, job.ErrorMessage, job.ProcessedAt, job.ID,
	)

	return err
}

// GetSheetJobsByRunID retrieves all sheet jobs for an ingest run
func (r *Repository) GetSheetJobsByRunID(ctx context.Context, runID int64) ([]*SheetJob, error) {
	query := `
		SELECT id, ingest_run_id, sheet_name, sheet_index, status,
		       entries, error_message, processed_at
		FROM ingest_sheet_jobs
		WHERE ingest_run_id = $1
		ORDER BY sheet_index
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*SheetJob
	for rows.Next() {
		job := &SheetJob{}
		err := rows.Scan(
			&job.ID, &job.IngestRunID, &job.SheetName, &job.SheetIndex,
			&job.Status, &job.Entries, &job.ErrorMessage, &job.ProcessedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// GetPipelineStats retrieves statistics for a pipeline
func (r *Repository) GetPipelineStats(ctx context.Context, pipelineName string, since time.Time) (*PipelineMetrics, error) {
	query := `
		SELECT
			COALESCE(SUM(processed_sheets), 0) as sheets_processed,
			COALESCE(SUM(total_entries), 0) as entries_processed,
			COUNT(CASE WHEN status = $2 THEN 1 END) as error_count,
			COALESCE(MAX(completed_at), $3) as last_processed_at
		FROM ingest_runs
		WHERE pipeline_name = $1
		  AND started_at >= $3
		  AND status IN ($4, $2)
	`

	metrics := &PipelineMetrics{}
	err := r.db.QueryRowContext(
		ctx, query,
		pipelineName, StatusFailed, since, StatusCompleted,
	).Scan(
		&metrics.SheetsProcessed,
		&metrics.EntriesProcessed,
		&metrics.ErrorCount,
		&metrics.LastProcessedAt,
	)

	if err == sql.ErrNoRows {
		return &PipelineMetrics{}, nil
	}

	return metrics, err
}
