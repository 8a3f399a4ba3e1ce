package checkstock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidatesTwoMaterials(t *testing.T) {
	g := twoMaterialSheet()
	segs, err := SegmentColumns(g.Row(1), g.Row(2), g.Width(), "LOC")
	require.NoError(t, err)

	cands := ExtractCandidates(g, 1, segs)
	require.Len(t, cands, 2)

	assert.Equal(t, 3, cands[0].Row)
	assert.Equal(t, 2, cands[0].Anchor)
	assert.Equal(t, "A1", cands[0].Cell(FieldLocation).Text)
	assert.Equal(t, 500.0, cands[0].Cell(FieldOpeningKg).Number)
	assert.Equal(t, "05/03/2024", cands[0].Cell(FieldDate).Text)

	assert.Equal(t, 13, cands[1].Anchor)
	assert.Equal(t, 300.0, cands[1].Cell(FieldOpeningKg).Number)
}

func TestExtractCandidatesSuppressesEmptyPairs(t *testing.T) {
	g := newSheet(7, 13).
		text(0, 0, "LOC").
		text(1, 0, "Muối").
		num(2, 1, 4).      // bags only, no weight, no location
		num(3, 4, 1e-12).  // inbound weight below epsilon
		num(4, 6, -25).    // outbound weight entered negative
		text(5, 0, "C9").  // location only
		text(6, 2, "abc"). // malformed weight reads as zero
		grid()
	segs, err := SegmentColumns(g.Row(0), g.Row(1), g.Width(), "LOC")
	require.NoError(t, err)

	cands := ExtractCandidates(g, 0, segs)
	require.Len(t, cands, 2)
	assert.Equal(t, 4, cands[0].Row)
	assert.Equal(t, 5, cands[1].Row)
}

func TestExtractCandidatesClipsToSegment(t *testing.T) {
	g := newSheet(3, 24).
		text(0, 0, "LOC").
		text(0, 11, "LOC").
		text(1, 0, "Muối").
		text(1, 11, "Đường").
		text(2, 0, "A1").
		text(2, 12, "NCC Sai"). // offset +12 of the first segment belongs to the second
		grid()
	segs, err := SegmentColumns(g.Row(0), g.Row(1), g.Width(), "LOC")
	require.NoError(t, err)

	cands := ExtractCandidates(g, 0, segs)
	require.Len(t, cands, 1)
	assert.True(t, cands[0].Cell(FieldSupplier).IsEmpty())
}

func TestFieldOffsets(t *testing.T) {
	assert.Equal(t, 0, fieldOffsets[FieldLocation])
	assert.Equal(t, 9, fieldOffsets[FieldAvgPerBag])
	assert.Equal(t, 10, fieldOffsets[FieldDate])
	assert.Equal(t, 12, fieldOffsets[FieldSupplier])
}
