package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/andresuchdata/checkstock/internal/analytics"
	"github.com/andresuchdata/checkstock/internal/domain"
)

// MemoryLedger keeps entries in process memory. It backs tests and the
// CLI when no database is configured.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	seen    map[uuid.UUID]struct{}
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[uuid.UUID]struct{})}
}

func (m *MemoryLedger) Append(ctx context.Context, entry domain.LedgerEntry) error {
	return m.AppendBatch(ctx, []domain.LedgerEntry{entry})
}

func (m *MemoryLedger) AppendBatch(ctx context.Context, entries []domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.ID != uuid.Nil {
			if _, dup := m.seen[e.ID]; dup {
				continue
			}
			m.seen[e.ID] = struct{}{}
		}
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *MemoryLedger) ListEntries(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return analytics.Filter(m.entries, filter), nil
}

// Len returns the number of stored entries.
func (m *MemoryLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
