package drive

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// writeSheetCSV streams one sheet of an xlsx workbook as CSV. An empty sheet
// name selects the first sheet.
func writeSheetCSV(r io.Reader, sheet string, w io.Writer) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return fmt.Errorf("xlsx has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("error iterating rows in %s: %w", sheet, err)
	}

	cw.Flush()
	return cw.Error()
}
