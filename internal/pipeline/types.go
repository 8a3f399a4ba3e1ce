package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

// Pipeline defines the interface that all sheet pipelines must implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Transform turns one sheet into ledger entries. It must not retain
	// the sheet or share state between calls.
	Transform(ctx context.Context, sheet grid.Sheet) (SheetOutput, error)

	// Validate checks if the sheet can be handed to Transform
	Validate(sheet grid.Sheet) error
}

// SheetOutput is the result of transforming one sheet.
type SheetOutput struct {
	Sheet          string
	HeaderRow      int
	Segments       int
	Degraded       bool
	Entries        []domain.LedgerEntry
	MalformedCells int
}

// EntrySink receives completed batches of entries. It only ever appends.
type EntrySink interface {
	AppendBatch(ctx context.Context, entries []domain.LedgerEntry) error
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name          string
	BatchSize     int           // Number of entries to buffer before flushing
	FlushInterval time.Duration // Max time to wait before flushing
	WorkerCount   int           // Number of sheets parsed concurrently
	RetryAttempts int           // Number of flush retries on sink failure
	RetryBackoff  time.Duration // Backoff duration between retries
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:          name,
		BatchSize:     500,
		FlushInterval: 30 * time.Second,
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
	}
}

// PipelineStatus represents the current state of an ingest run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

// SheetJobStatus represents the state of a single sheet job
type SheetJobStatus string

const (
	SheetJobQueued     SheetJobStatus = "queued"
	SheetJobProcessing SheetJobStatus = "processing"
	SheetJobCompleted  SheetJobStatus = "completed"
	SheetJobNoRecords  SheetJobStatus = "no_records"
	SheetJobFailed     SheetJobStatus = "failed"
)

// IngestRun tracks a single workbook ingestion
type IngestRun struct {
	ID              int64
	PipelineName    string
	BatchID         uuid.UUID
	Workbook        string
	Status          PipelineStatus
	TotalSheets     int
	ProcessedSheets int
	TotalEntries    int
	StartedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
}

// SheetJob tracks the processing of a single sheet
type SheetJob struct {
	ID           int64
	IngestRunID  int64
	SheetName    string
	SheetIndex   int
	Status       SheetJobStatus
	Entries      int
	ErrorMessage string
	ProcessedAt  *time.Time
}

// PipelineMetrics holds metrics for monitoring
type PipelineMetrics struct {
	SheetsProcessed  int64
	EntriesProcessed int64
	ErrorCount       int64
	AverageLatency   time.Duration
	LastProcessedAt  time.Time
}
