package checkstock

import (
	"math"

	"github.com/andresuchdata/checkstock/internal/grid"
)

// Field names one position of the repeated block layout.
type Field int

const (
	FieldLocation Field = iota
	FieldOpeningBags
	FieldOpeningKg
	FieldInboundBags
	FieldInboundKg
	FieldOutboundBags
	FieldOutboundKg
	FieldClosingBags
	FieldClosingKg
	FieldAvgPerBag
	FieldDate
	FieldSupplier
	fieldCount
)

// fieldOffsets maps each field to its column offset from the segment anchor.
// Offset 11 carries no field.
var fieldOffsets = [fieldCount]int{
	FieldLocation:     0,
	FieldOpeningBags:  1,
	FieldOpeningKg:    2,
	FieldInboundBags:  3,
	FieldInboundKg:    4,
	FieldOutboundBags: 5,
	FieldOutboundKg:   6,
	FieldClosingBags:  7,
	FieldClosingKg:    8,
	FieldAvgPerBag:    9,
	FieldDate:         10,
	FieldSupplier:     12,
}

var weightFields = []Field{FieldOpeningKg, FieldInboundKg, FieldOutboundKg, FieldClosingKg}

const weightEpsilon = 1e-9

// Candidate is one (row, segment) pair that passed the emptiness check.
type Candidate struct {
	Row    int
	Anchor int
	Label  string
	cells  [fieldCount]grid.Cell
}

// Cell returns the raw cell of a field.
func (c Candidate) Cell(f Field) grid.Cell {
	return c.cells[f]
}

// ExtractCandidates walks every data row below the two header rows and reads
// each segment's fields. Offsets that fall outside the segment read as empty.
func ExtractCandidates(g *grid.Grid, headerRow int, segments []Segment) []Candidate {
	var out []Candidate
	for r := headerRow + 2; r < g.Height(); r++ {
		for _, seg := range segments {
			cand := Candidate{Row: r, Anchor: seg.Start, Label: seg.Label}
			for f := Field(0); f < fieldCount; f++ {
				col := seg.Start + fieldOffsets[f]
				if col < seg.End {
					cand.cells[f] = g.At(r, col)
				}
			}
			if cand.hasContent() {
				out = append(out, cand)
			}
		}
	}
	return out
}

func (c Candidate) hasContent() bool {
	if !c.cells[FieldLocation].IsEmpty() {
		return true
	}
	for _, f := range weightFields {
		if math.Abs(ParseNumber(c.cells[f]).OrZero()) > weightEpsilon {
			return true
		}
	}
	return false
}
