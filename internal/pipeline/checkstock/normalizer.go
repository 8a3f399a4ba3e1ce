package checkstock

import (
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/checkstock/internal/analytics"
	"github.com/andresuchdata/checkstock/internal/domain"
)

// Normalize converts a candidate into a count entry. The second return value
// is the number of cells that could not be read and were taken as zero or
// left unset.
func Normalize(c Candidate, sheet string, today time.Time) (domain.LedgerEntry, int) {
	malformed := 0
	num := func(f Field) NumberResult {
		res := ParseNumber(c.Cell(f))
		if res.Status == Malformed {
			malformed++
		}
		return res
	}

	openingBags := num(FieldOpeningBags).OrZero()
	openingKg := num(FieldOpeningKg).OrZero()
	inboundBags := num(FieldInboundBags).OrZero()
	inboundKg := num(FieldInboundKg).OrZero()
	// outbound columns are sometimes entered negative
	outboundBags := math.Abs(num(FieldOutboundBags).OrZero())
	outboundKg := math.Abs(num(FieldOutboundKg).OrZero())
	closingBagsRes := num(FieldClosingBags)
	closingKgRes := num(FieldClosingKg)
	avgRes := num(FieldAvgPerBag)

	entry := domain.LedgerEntry{
		Kind:         domain.EntryCount,
		Material:     domain.NormalizeMaterial(c.Label),
		MaterialRaw:  strings.TrimSpace(c.Label),
		Lot:          domain.NormalizeCode(c.Cell(FieldLocation).String()),
		Location:     strings.TrimSpace(sheet),
		BagCount:     openingBags,
		WeightKg:     openingKg,
		InboundBags:  inboundBags,
		InboundKg:    inboundKg,
		OutboundBags: outboundBags,
		OutboundKg:   outboundKg,
		ClosingBags:  closingBagsRes.OrZero(),
		ClosingKg:    closingKgRes.OrZero(),
		Supplier:     strings.TrimSpace(c.Cell(FieldSupplier).String()),
		SourceSheet:  sheet,
		SourceRow:    c.Row,
		SourceColumn: c.Anchor,
	}

	if closingBagsRes.Status == Empty && closingKgRes.Status == Empty {
		entry.ClosingBags = openingBags + inboundBags - outboundBags
		entry.ClosingKg = openingKg + inboundKg - outboundKg
	}

	entry.AvgKgPerBag = averagePerBag(openingBags, openingKg, avgRes)

	date := ParseDate(c.Cell(FieldDate))
	switch date.Status {
	case Parsed:
		d := date.Value
		entry.ObservedDate = &d
		entry.AgeDays = analytics.AgeDays(entry.ObservedDate, today)
	case Malformed:
		malformed++
		entry.RawDate = strings.TrimSpace(date.Raw)
	}

	return entry, malformed
}

// averagePerBag prefers the computed opening average over the explicit
// column and yields nil when neither is usable.
func averagePerBag(bags, weight float64, explicit NumberResult) *float64 {
	if bags != 0 {
		v := math.Abs(weight) / math.Abs(bags)
		return &v
	}
	if explicit.Status == Parsed && explicit.Value != 0 {
		v := math.Abs(explicit.Value)
		return &v
	}
	return nil
}
