package export

import (
	"fmt"
	"io"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/andresuchdata/checkstock/internal/domain"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// pdfColumns is the subset of columns that fits an A4 landscape page, with
// grid widths summing to 12.
var pdfColumns = []struct {
	title string
	size  int
	cell  func(Record) string
}{
	{"Ngay", 1, func(r Record) string { return formatDate(r.Date) }},
	{"Nguyen lieu", 2, func(r Record) string { return r.Material }},
	{"Lo", 1, func(r Record) string { return r.Lot }},
	{"Vi tri", 1, func(r Record) string { return r.Location }},
	{"So bao", 1, func(r Record) string { return formatNumber(r.Bags, 0) }},
	{"So kg", 1, func(r Record) string { return formatNumber(r.WeightKg, 2) }},
	{"Nhap kg", 1, func(r Record) string { return formatNumber(r.InboundKg, 2) }},
	{"Xuat kg", 1, func(r Record) string { return formatNumber(r.OutboundKg, 2) }},
	{"Ton cuoi", 1, func(r Record) string { return formatNumber(r.ClosingKg, 2) }},
	{"TB kg/bao", 1, func(r Record) string { return formatOptional(r.AvgKgPerBag, 2) }},
	{"Tuoi", 1, func(r Record) string { return formatAge(r.AgeDays) }},
}

// PDFRenderer writes the ledger report as an A4 landscape table.
type PDFRenderer struct {
	Title string
	Now   func() time.Time
}

func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Extension() string { return ".pdf" }

func (p PDFRenderer) Render(w io.Writer, records []Record) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	title := pdfText(p.Title)
	if title == "" {
		title = "BAO CAO TON KHO"
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(8).WithRightMargin(8).
		WithTopMargin(8).WithBottomMargin(8).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(
		text.NewRow(10, title, props.Text{Style: fontstyle.Bold, Size: 13, Align: align.Center, Color: colorPrimary}),
		text.NewRow(6, "Ngay in: "+now().Format("02/01/2006 15:04"), props.Text{Size: 8, Align: align.Right, Color: colorGray}),
		line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}),
		reportHeaderRow(),
	)
	for _, r := range records {
		m.AddRows(reportRow(r))
	}

	t := sum(records)
	m.AddRows(
		line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}),
		text.NewRow(6, fmt.Sprintf("Tong: %d dong | %s bao | %s kg | nhap %s kg | xuat %s kg | ton cuoi %s kg",
			len(records),
			formatNumber(t.bags, 0),
			formatNumber(t.weight, 2),
			formatNumber(t.inbound, 2),
			formatNumber(t.outbound, 2),
			formatNumber(t.closing, 2),
		), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)

	return writeDocument(m, w)
}

func reportHeaderRow() core.Row {
	cols := make([]core.Col, len(pdfColumns))
	for i, c := range pdfColumns {
		cols[i] = col.New(c.size).Add(text.New(c.title, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1, Left: 1,
		}))
	}
	return row.New(6).Add(cols...)
}

func reportRow(r Record) core.Row {
	cols := make([]core.Col, len(pdfColumns))
	for i, c := range pdfColumns {
		cols[i] = col.New(c.size).Add(text.New(pdfText(c.cell(r)), props.Text{Size: 7, Top: 1, Left: 1}))
	}
	return row.New(5).Add(cols...)
}

// LotCard renders the A5 management card of one lot from its earliest entry.
func LotCard(w io.Writer, lot string, records []Record) error {
	lot = domain.NormalizeCode(lot)
	var first *Record
	for i := range records {
		r := &records[i]
		if r.Lot != lot {
			continue
		}
		if first == nil || (r.Date != nil && (first.Date == nil || r.Date.Before(*first.Date))) {
			first = r
		}
	}
	if first == nil {
		return fmt.Errorf("lot %q: %w", lot, domain.ErrNotFound)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A5).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(5).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		WithTitle("Phieu quan ly lo "+lot, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(
		text.NewRow(10, "PHIEU QUAN LY LO", props.Text{Style: fontstyle.Bold, Size: 14, Align: align.Center}),
		line.NewRow(4, props.Line{Color: colorPrimary, Thickness: 0.3}),
		cardLine("Ten nguyen lieu", first.Material),
		cardLine("Ma lo", first.Lot),
		cardLine("Vi tri", first.Location),
		cardLine("Ngay nhap", formatDate(first.Date)),
		cardLine("So bao", formatNumber(first.Bags, 0)),
		cardLine("Khoi luong (kg)", formatNumber(first.WeightKg, 2)),
		cardLine("Trung binh (kg/bao)", formatOptional(first.AvgKgPerBag, 2)),
		cardLine("NCC", first.Supplier),
		cardLine("Tuoi (ngay)", formatAge(first.AgeDays)),
	)

	return writeDocument(m, w)
}

func cardLine(label, value string) core.Row {
	return row.New(7).Add(
		col.New(5).Add(text.New(label+":", props.Text{Style: fontstyle.Bold, Size: 10, Top: 1})),
		col.New(7).Add(text.New(pdfText(value), props.Text{Size: 10, Top: 1})),
	)
}

// pdfText drops diacritics the built-in fonts cannot draw.
func pdfText(s string) string {
	return domain.StripDiacritics(s)
}

func writeDocument(m core.Maroto, w io.Writer) error {
	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("pdf: generate document: %w", err)
	}
	if _, err := w.Write(doc.GetBytes()); err != nil {
		return fmt.Errorf("pdf: write document: %w", err)
	}
	return nil
}
