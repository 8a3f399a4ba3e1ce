// Package export renders ledger entries into spreadsheet and PDF documents.
package export

import (
	"io"
	"time"

	"github.com/andresuchdata/checkstock/internal/analytics"
	"github.com/andresuchdata/checkstock/internal/domain"
)

// Record is one printable ledger row.
type Record struct {
	Date        *time.Time
	Material    string
	Lot         string
	Location    string
	Kind        domain.EntryKind
	Bags        float64
	WeightKg    float64
	InboundKg   float64
	OutboundKg  float64
	ClosingKg   float64
	AvgKgPerBag *float64
	Supplier    string
	AgeDays     *int
	SourceSheet string
}

// Renderer writes records as a document.
type Renderer interface {
	Render(w io.Writer, records []Record) error
	ContentType() string
	Extension() string
}

var columns = []string{
	"Ngay", "Nguyen lieu", "Lo", "Vi tri", "Loai", "So bao", "So kg",
	"Nhap kg", "Xuat kg", "Ton cuoi kg", "TB kg/bao", "NCC", "Tuoi (ngay)", "Sheet",
}

// Records converts entries to rows with age computed against today.
func Records(entries []domain.LedgerEntry, today time.Time) []Record {
	aged := analytics.WithAge(entries, today)
	out := make([]Record, len(aged))
	for i, e := range aged {
		out[i] = Record{
			Date:        e.ObservedDate,
			Material:    e.Material,
			Lot:         e.Lot,
			Location:    e.Location,
			Kind:        e.Kind,
			Bags:        e.BagCount,
			WeightKg:    e.WeightKg,
			InboundKg:   e.InboundKg,
			OutboundKg:  e.OutboundKg,
			ClosingKg:   e.ClosingKg,
			AvgKgPerBag: e.AvgKgPerBag,
			Supplier:    e.Supplier,
			AgeDays:     e.AgeDays,
			SourceSheet: e.SourceSheet,
		}
	}
	return out
}

type totals struct {
	bags, weight, inbound, outbound, closing float64
}

func sum(records []Record) totals {
	var t totals
	for _, r := range records {
		t.bags += r.Bags
		t.weight += r.WeightKg
		t.inbound += r.InboundKg
		t.outbound += r.OutboundKg
		t.closing += r.ClosingKg
	}
	return t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}
