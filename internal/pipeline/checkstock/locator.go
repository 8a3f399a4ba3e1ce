package checkstock

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/grid"
)

const (
	DefaultMarkerToken = "LOC"
	DefaultScanDepth   = 12
)

// HeaderDetector finds the structural header row of a grid.
type HeaderDetector func(g *grid.Grid) (row int, ok bool)

// MarkerDetector accepts the first row, within maxDepth rows from the top,
// holding a cell equal to token after trimming and case folding.
func MarkerDetector(token string, maxDepth int) HeaderDetector {
	want := foldToken(token)
	return func(g *grid.Grid) (int, bool) {
		depth := min(maxDepth, g.Height())
		for r := 0; r < depth; r++ {
			for _, c := range g.Row(r) {
				if isMarker(c, want) {
					return r, true
				}
			}
		}
		return -1, false
	}
}

// LocateHeader runs detect and maps a miss to domain.ErrHeaderNotFound.
func LocateHeader(g *grid.Grid, detect HeaderDetector) (int, error) {
	row, ok := detect(g)
	if !ok {
		return -1, domain.ErrHeaderNotFound
	}
	return row, nil
}

func foldToken(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// isMarker compares a cell with an already folded token.
func isMarker(c grid.Cell, folded string) bool {
	if c.Kind != grid.KindText {
		return false
	}
	return foldToken(c.Text) == folded
}
