package checkstock

import (
	"time"

	"github.com/andresuchdata/checkstock/internal/grid"
)

type sheetBuilder struct {
	rows [][]grid.Cell
}

func newSheet(height, width int) *sheetBuilder {
	b := &sheetBuilder{rows: make([][]grid.Cell, height)}
	for i := range b.rows {
		b.rows[i] = make([]grid.Cell, width)
	}
	return b
}

func (b *sheetBuilder) text(r, c int, s string) *sheetBuilder {
	b.rows[r][c] = grid.TextCell(s)
	return b
}

func (b *sheetBuilder) num(r, c int, v float64) *sheetBuilder {
	b.rows[r][c] = grid.NumberCell(v)
	return b
}

func (b *sheetBuilder) date(r, c int, t time.Time) *sheetBuilder {
	b.rows[r][c] = grid.DateCell(t)
	return b
}

func (b *sheetBuilder) grid() *grid.Grid {
	return grid.New(b.rows)
}

var fixedToday = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// twoMaterialSheet is the canonical layout: title row, marker row with
// anchors at columns 2 and 13, material sub-header, one data row.
func twoMaterialSheet() *grid.Grid {
	return newSheet(4, 26).
		text(0, 0, "CHECK STOCK KHO NGUYEN LIEU").
		text(1, 2, "LOC").
		text(1, 13, "LOC").
		text(2, 2, "Bột Mì").
		text(2, 13, "Đường").
		text(3, 2, "A1").
		num(3, 3, 20).
		num(3, 4, 500).
		text(3, 12, "05/03/2024").
		text(3, 13, "B1").
		num(3, 14, 6).
		num(3, 15, 300).
		date(3, 23, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).
		grid()
}
