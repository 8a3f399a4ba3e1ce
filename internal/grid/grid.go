// Package grid holds the immutable cell matrix the check-stock parser reads.
// Adapters in this package decode XLSX and CSV files into it; nothing in the
// parser touches a file format directly.
package grid

import (
	"strconv"
	"strings"
	"time"
)

// CellKind is the native type a cell carried in its source file.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindText
	KindNumber
	KindDate
)

// Cell is a single value of a sheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell builds a text cell. Blank strings produce the empty cell.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: KindText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: KindNumber, Number: v}
}

// DateCell builds a native date cell.
func DateCell(t time.Time) Cell {
	return Cell{Kind: KindDate, Time: t}
}

// IsEmpty reports whether the cell has no content worth reading.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// String renders the cell the way a user would read it.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Time.Format("2006-01-02")
	}
	return ""
}

// Grid is a rectangular, read-only view over a sheet. Rows may be ragged in
// the source; reads outside the stored data return the empty cell.
type Grid struct {
	rows  [][]Cell
	width int
}

// New copies rows into a new Grid.
func New(rows [][]Cell) *Grid {
	g := &Grid{rows: make([][]Cell, len(rows))}
	for i, r := range rows {
		g.rows[i] = append([]Cell(nil), r...)
		if len(r) > g.width {
			g.width = len(r)
		}
	}
	return g
}

// FromStrings builds a grid of text cells, e.g. from a CSV export.
func FromStrings(rows [][]string) *Grid {
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		cells[i] = make([]Cell, len(r))
		for j, v := range r {
			cells[i][j] = TextCell(v)
		}
	}
	return New(cells)
}

// Height is the number of rows.
func (g *Grid) Height() int { return len(g.rows) }

// Width is the length of the longest row.
func (g *Grid) Width() int { return g.width }

// At returns the cell at (row, col), both zero-based.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return Cell{}
	}
	return g.rows[row][col]
}

// Row returns a copy of row r padded to the grid width.
func (g *Grid) Row(r int) []Cell {
	out := make([]Cell, g.width)
	if r >= 0 && r < len(g.rows) {
		copy(out, g.rows[r])
	}
	return out
}

// Sheet is a named grid.
type Sheet struct {
	Name string
	Grid *Grid
}

// Workbook is an ordered list of sheets read from one file.
type Workbook struct {
	Name   string
	Sheets []Sheet
}
