package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/checkstock/internal/domain"
)

func TestMemoryLedgerAppendIsIdempotentPerID(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	a := domain.LedgerEntry{ID: uuid.New(), Material: "BOT MI", Lot: "A1"}
	b := domain.LedgerEntry{ID: uuid.New(), Material: "DUONG", Lot: "B1"}

	require.NoError(t, l.AppendBatch(ctx, []domain.LedgerEntry{a, b}))
	require.NoError(t, l.AppendBatch(ctx, []domain.LedgerEntry{a, b}))
	require.NoError(t, l.Append(ctx, domain.LedgerEntry{Material: "MUOI"}))
	require.NoError(t, l.Append(ctx, domain.LedgerEntry{Material: "MUOI"}))

	assert.Equal(t, 4, l.Len())

	all, err := l.ListEntries(ctx, domain.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BOT MI", "DUONG", "MUOI", "MUOI"},
		[]string{all[0].Material, all[1].Material, all[2].Material, all[3].Material})
}

func TestMemoryLedgerListEntriesFilters(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.AppendBatch(ctx, []domain.LedgerEntry{
		{ID: uuid.New(), Material: "BOT MI", Lot: "A1", ObservedDate: &d},
		{ID: uuid.New(), Material: "DUONG", Lot: "B1", ObservedDate: &d},
	}))

	got, err := l.ListEntries(ctx, domain.LedgerFilter{Materials: []string{"bột mì"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0].Lot)
}

func TestMemoryLedgerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewMemoryLedger()
	assert.ErrorIs(t, l.Append(ctx, domain.LedgerEntry{Material: "X"}), context.Canceled)
	assert.Equal(t, 0, l.Len())
}
