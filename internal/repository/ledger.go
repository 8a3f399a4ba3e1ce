package repository

import (
	"context"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// LedgerSink is the append-only side of the ledger.
type LedgerSink interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
	// AppendBatch appends all entries or none. Entries whose ID is already
	// stored are skipped, so a retried batch is not duplicated.
	AppendBatch(ctx context.Context, entries []domain.LedgerEntry) error
}

// LedgerReader lists stored entries in insertion order.
type LedgerReader interface {
	ListEntries(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error)
}

// Ledger is a store that can be both appended to and read.
type Ledger interface {
	LedgerSink
	LedgerReader
}
