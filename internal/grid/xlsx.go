package grid

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes every worksheet of an XLSX stream.
//
// Each sheet is read twice: once with raw values so numbers keep full
// precision, and once formatted so cells styled as dates can be told apart
// from plain numbers.
func ReadXLSX(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", name)
	}

	wb := &Workbook{Name: name}
	for _, sheet := range sheets {
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
		}
		formatted, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read formatted rows from sheet %s: %w", sheet, err)
		}

		cells := make([][]Cell, len(raw))
		for i, row := range raw {
			cells[i] = make([]Cell, len(row))
			for j, v := range row {
				shown := ""
				if i < len(formatted) && j < len(formatted[i]) {
					shown = formatted[i][j]
				}
				cells[i][j] = decodeXLSXCell(v, shown)
			}
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheet, Grid: New(cells)})
	}

	return wb, nil
}

// decodeXLSXCell classifies a raw cell value using its formatted rendering.
func decodeXLSXCell(raw, shown string) Cell {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Cell{}
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return TextCell(raw)
	}

	if looksLikeDate(shown) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return DateCell(t)
		}
	}

	return NumberCell(n)
}

// fractionPattern matches fraction number formats such as "1 1/2" or "3/4".
var fractionPattern = regexp.MustCompile(`^-?\d+( +\d+)?/\d+$`)

// looksLikeDate is true for rendered values such as "12/03/2024" or
// "2024-03-12" that are not themselves plain numbers or fractions.
func looksLikeDate(shown string) bool {
	s := strings.TrimSpace(shown)
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	if fractionPattern.MatchString(s) {
		return false
	}
	return strings.ContainsAny(s, "/-") && strings.IndexFunc(s, func(r rune) bool {
		return r >= '0' && r <= '9'
	}) >= 0 && !strings.ContainsAny(s, ",()")
}

// ColumnName returns the A1-style letters of a zero-based column index.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return strconv.Itoa(col)
	}
	return name
}
