package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// StreamingAggregator buffers the entries of completed sheets and flushes
// them to the sink in batches. Entries of a sheet are only ever added once
// that sheet has been fully transformed.
type StreamingAggregator struct {
	name          string
	config        PipelineConfig
	buffer        [][]domain.LedgerEntry
	bufferSize    int
	flushed       int
	mu            sync.Mutex
	flushCallback func(ctx context.Context, entries []domain.LedgerEntry) error
	lastFlush     time.Time
}

// NewStreamingAggregator creates a new streaming aggregator for a pipeline
func NewStreamingAggregator(
	name string,
	config PipelineConfig,
	flushCallback func(ctx context.Context, entries []domain.LedgerEntry) error,
) *StreamingAggregator {
	return &StreamingAggregator{
		name:          name,
		config:        config,
		flushCallback: flushCallback,
		lastFlush:     time.Now(),
	}
}

// AddSheetEntries adds the entries of one completed sheet to the buffer
func (sa *StreamingAggregator) AddSheetEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	sa.buffer = append(sa.buffer, entries)
	sa.bufferSize += len(entries)

	log.Debug().
		Str("pipeline", sa.name).
		Int("sheets", len(sa.buffer)).
		Int("entries", sa.bufferSize).
		Msg("buffered sheet entries")

	shouldFlush := sa.bufferSize >= sa.config.BatchSize ||
		(sa.config.FlushInterval > 0 && time.Since(sa.lastFlush) >= sa.config.FlushInterval)

	if shouldFlush {
		return sa.flushLocked(ctx)
	}

	return nil
}

// Finalize flushes any remaining entries
func (sa *StreamingAggregator) Finalize(ctx context.Context) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if len(sa.buffer) == 0 {
		log.Debug().Str("pipeline", sa.name).Msg("no entries to finalize")
		return nil
	}

	return sa.flushLocked(ctx)
}

// flushLocked hands the buffer to the flush callback.
// Must be called with sa.mu locked
func (sa *StreamingAggregator) flushLocked(ctx context.Context) error {
	if len(sa.buffer) == 0 {
		return nil
	}

	all := make([]domain.LedgerEntry, 0, sa.bufferSize)
	for _, sheetEntries := range sa.buffer {
		all = append(all, sheetEntries...)
	}

	if sa.flushCallback != nil {
		if err := sa.flushCallback(ctx, all); err != nil {
			return fmt.Errorf("flush callback failed: %w", err)
		}
	}

	log.Info().
		Str("pipeline", sa.name).
		Int("sheets", len(sa.buffer)).
		Int("entries", len(all)).
		Msg("flushed entries to ledger")

	sa.flushed += len(all)
	sa.buffer = sa.buffer[:0]
	sa.bufferSize = 0
	sa.lastFlush = time.Now()

	return nil
}

// GetBufferStats returns current buffer statistics
func (sa *StreamingAggregator) GetBufferStats() (sheetCount, entryCount, flushed int) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return len(sa.buffer), sa.bufferSize, sa.flushed
}
