package checkstock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

func newTestPipeline() *CheckStockPipeline {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedToday }
	return NewCheckStockPipeline(opts)
}

func TestTransformTwoMaterials(t *testing.T) {
	out, err := newTestPipeline().Transform(context.Background(), grid.Sheet{Name: "T3", Grid: twoMaterialSheet()})
	require.NoError(t, err)

	assert.Equal(t, 1, out.HeaderRow)
	assert.Equal(t, 2, out.Segments)
	assert.False(t, out.Degraded)
	require.Len(t, out.Entries, 2)

	bot, duong := out.Entries[0], out.Entries[1]
	assert.Equal(t, "BOT MI", bot.Material)
	assert.Equal(t, "A1", bot.Lot)
	assert.Equal(t, 500.0, bot.WeightKg)
	require.NotNil(t, bot.AgeDays)
	assert.Equal(t, 10, *bot.AgeDays)

	assert.Equal(t, "DUONG", duong.Material)
	assert.Equal(t, "B1", duong.Lot)
	assert.Equal(t, 300.0, duong.WeightKg)
	require.NotNil(t, duong.AvgKgPerBag)
	assert.Equal(t, 50.0, *duong.AvgKgPerBag)
	require.NotNil(t, duong.AgeDays)
	assert.Equal(t, 14, *duong.AgeDays)
}

func TestTransformIsDeterministic(t *testing.T) {
	p := newTestPipeline()
	sheet := grid.Sheet{Name: "T3", Grid: twoMaterialSheet()}

	first, err := p.Transform(context.Background(), sheet)
	require.NoError(t, err)
	second, err := p.Transform(context.Background(), sheet)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransformHeaderNotFound(t *testing.T) {
	g := newSheet(3, 3).text(0, 0, "Tổng hợp").grid()

	out, err := newTestPipeline().Transform(context.Background(), grid.Sheet{Name: "Summary", Grid: g})

	assert.ErrorIs(t, err, domain.ErrHeaderNotFound)
	assert.Equal(t, -1, out.HeaderRow)
	assert.Empty(t, out.Entries)
}

func TestTransformEmptySegmentSet(t *testing.T) {
	opts := DefaultOptions()
	opts.Detector = func(*grid.Grid) (int, bool) { return 0, true }
	p := NewCheckStockPipeline(opts)

	g := newSheet(3, 3).text(0, 0, "Ghi chú").grid()
	out, err := p.Transform(context.Background(), grid.Sheet{Name: "Notes", Grid: g})

	assert.ErrorIs(t, err, domain.ErrEmptySegmentSet)
	assert.Equal(t, 0, out.HeaderRow)
}

func TestTransformDegradedSheet(t *testing.T) {
	opts := DefaultOptions()
	opts.Detector = func(*grid.Grid) (int, bool) { return 0, true }
	opts.Now = func() time.Time { return fixedToday }
	p := NewCheckStockPipeline(opts)

	g := newSheet(4, 4).
		text(0, 0, "TON KHO").
		text(1, 1, "Bột Mì").
		text(2, 1, "A7").
		grid()
	out, err := p.Transform(context.Background(), grid.Sheet{Name: "Old", Grid: g})
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "BOT MI", out.Entries[0].Material)
	assert.Equal(t, "A7", out.Entries[0].Lot)
}

func TestTransformCountsMalformedCells(t *testing.T) {
	g := newSheet(3, 13).
		text(0, 0, "LOC").
		text(1, 0, "Muối").
		text(2, 0, "C1").
		text(2, 2, "??").
		grid()

	out, err := newTestPipeline().Transform(context.Background(), grid.Sheet{Name: "S", Grid: g})
	require.NoError(t, err)

	require.Len(t, out.Entries, 1)
	assert.Equal(t, 1, out.MalformedCells)
	assert.Equal(t, 0.0, out.Entries[0].WeightKg)
}

func TestValidateRejectsMissingGrid(t *testing.T) {
	assert.Error(t, newTestPipeline().Validate(grid.Sheet{Name: "x"}))
	assert.NoError(t, newTestPipeline().Validate(grid.Sheet{Name: "x", Grid: grid.New(nil)}))
}
