package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "BaoCao"

// XLSXRenderer writes a single-sheet workbook with a totals row.
type XLSXRenderer struct{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Extension() string { return ".xlsx" }

func (XLSXRenderer) Render(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("number style: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		row := []interface{}{
			formatDate(r.Date), r.Material, r.Lot, r.Location, string(r.Kind),
			r.Bags, r.WeightKg, r.InboundKg, r.OutboundKg, r.ClosingKg,
			optional(r.AvgKgPerBag), r.Supplier, optionalInt(r.AgeDays), r.SourceSheet,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	t := sum(records)
	totalRow := len(records) + 2
	total := []interface{}{"TONG", "", "", "", "", t.bags, t.weight, t.inbound, t.outbound, t.closing}
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetSheetRow(reportSheet, cell, &total); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "F2", fmt.Sprintf("K%d", totalRow), numberStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("%s%d", lastCol, totalRow), headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "A", lastCol, 14); err != nil {
		return err
	}
	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
