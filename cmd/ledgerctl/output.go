package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/checkstock/internal/domain"
	"github.com/andresuchdata/checkstock/internal/pipeline"
)

func formatKg(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	return table
}

func printReports(w io.Writer, reports []domain.IngestReport) {
	table := newTable(w, "WORKBOOK", "SHEET", "STATUS", "ENTRIES", "MALFORMED", "NOTE")
	for _, r := range reports {
		if r.Error != "" && len(r.Sheets) == 0 {
			table.Append([]string{r.Workbook, "-", string(domain.SheetRejected), "0", "0", r.Error})
			continue
		}
		for _, s := range r.Sheets {
			note := s.Error
			if s.Degraded && note == "" {
				note = "degraded layout"
			}
			table.Append([]string{
				r.Workbook, s.Sheet, string(s.Status),
				strconv.Itoa(s.Entries), strconv.Itoa(s.MalformedCells), note,
			})
		}
	}
	table.Render()
}

func printForecast(w io.Writer, recs []domain.ReorderRecommendation) {
	table := newTable(w, "MATERIAL", "ON HAND KG", "DAILY KG", "DAYS LEFT", "REORDER KG", "STATUS")
	for _, r := range recs {
		table.Append([]string{
			r.Material,
			formatKg(r.OnHandKg),
			formatKg(r.DailyUsageKg),
			decimal.NewFromFloat(r.RemainingDays).Round(1).String(),
			formatKg(r.ReorderQtyKg),
			domain.ReorderStatusLabel(r.Status),
		})
	}
	table.Render()
}

func printSnapshot(w io.Writer, snaps []domain.InventorySnapshot, totals domain.LedgerTotals) {
	table := newTable(w, "MATERIAL", "KG", "BAGS", "LOTS", "LOCATIONS")
	for _, s := range snaps {
		table.Append([]string{
			s.Material, formatKg(s.TotalWeightKg), formatKg(s.TotalBags),
			strconv.Itoa(s.LotCount), strconv.Itoa(s.LocationCount),
		})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d entries", totals.Entries),
		"in " + formatKg(totals.InboundKg),
		"out " + formatKg(totals.OutboundKg),
		"closing " + formatKg(totals.ClosingKg),
		"",
	})
	table.Render()
}

func printRun(w io.Writer, run *pipeline.IngestRun, jobs []*pipeline.SheetJob) {
	fmt.Fprintf(w, "run %d %s (%s) batch=%s status=%s sheets=%d/%d entries=%d\n",
		run.ID, run.Workbook, run.PipelineName, run.BatchID, run.Status,
		run.ProcessedSheets, run.TotalSheets, run.TotalEntries)
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "error: %s\n", run.ErrorMessage)
	}

	table := newTable(w, "#", "SHEET", "STATUS", "ENTRIES", "ERROR")
	for _, j := range jobs {
		table.Append([]string{
			strconv.Itoa(j.SheetIndex), j.SheetName, string(j.Status), strconv.Itoa(j.Entries), j.ErrorMessage,
		})
	}
	table.Render()
}
