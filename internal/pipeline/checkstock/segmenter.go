package checkstock

import (
	"strings"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

// Segment is the half-open column range [Start, End) of one material slot.
// Start is the anchor column the field offsets are measured from.
type Segment struct {
	Start    int
	End      int
	Label    string
	Degraded bool
}

// SegmentColumns partitions the columns of a sheet using the marker cells of
// the header row. Without any marker it falls back to one single-column
// segment per non-empty sub-header cell.
func SegmentColumns(header, subHeader []grid.Cell, width int, token string) ([]Segment, error) {
	want := foldToken(token)

	var anchors []int
	for c := 0; c < len(header) && c < width; c++ {
		if isMarker(header[c], want) {
			anchors = append(anchors, c)
		}
	}

	var segments []Segment
	if len(anchors) == 0 {
		for c := 0; c < len(subHeader) && c < width; c++ {
			if subHeader[c].IsEmpty() {
				continue
			}
			segments = append(segments, Segment{
				Start:    c,
				End:      c + 1,
				Label:    strings.TrimSpace(subHeader[c].String()),
				Degraded: true,
			})
		}
	} else {
		for i, start := range anchors {
			end := width
			if i+1 < len(anchors) {
				end = anchors[i+1]
			}
			segments = append(segments, Segment{
				Start: start,
				End:   end,
				Label: segmentLabel(subHeader, start, end),
			})
		}
	}

	if len(segments) == 0 {
		return nil, domain.ErrEmptySegmentSet
	}
	return segments, nil
}

// segmentLabel is the first non-empty sub-header cell inside the segment,
// or the anchor column name when the sub-header is blank.
func segmentLabel(subHeader []grid.Cell, start, end int) string {
	for c := start; c < end && c < len(subHeader); c++ {
		if !subHeader[c].IsEmpty() {
			return strings.TrimSpace(subHeader[c].String())
		}
	}
	return "COL_" + grid.ColumnName(start)
}
