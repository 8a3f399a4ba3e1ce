package analytics

import (
	"sort"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// BuildSnapshots aggregates entries per normalized material. It keeps no
// state between calls; the result depends only on the entries given.
func BuildSnapshots(entries []domain.LedgerEntry) []domain.InventorySnapshot {
	type acc struct {
		snap      domain.InventorySnapshot
		lots      map[string]struct{}
		locations map[string]struct{}
	}

	byMaterial := make(map[string]*acc)
	for _, e := range entries {
		key := domain.NormalizeMaterial(e.Material)
		a, ok := byMaterial[key]
		if !ok {
			a = &acc{
				snap:      domain.InventorySnapshot{Material: key},
				lots:      make(map[string]struct{}),
				locations: make(map[string]struct{}),
			}
			byMaterial[key] = a
		}

		a.snap.TotalWeightKg += e.SignedWeight()
		a.snap.TotalBags += e.SignedBags()
		if e.Lot != "" {
			a.lots[e.Lot] = struct{}{}
		}
		if e.Location != "" {
			a.locations[e.Location] = struct{}{}
		}
	}

	out := make([]domain.InventorySnapshot, 0, len(byMaterial))
	for _, a := range byMaterial {
		a.snap.LotCount = len(a.lots)
		a.snap.LocationCount = len(a.locations)
		out = append(out, a.snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Material < out[j].Material })
	return out
}

// Totals sums the quantity columns of entries. Manual movements count in
// the inbound or outbound columns.
func Totals(entries []domain.LedgerEntry) domain.LedgerTotals {
	var t domain.LedgerTotals
	for _, e := range entries {
		t.Entries++
		switch e.Kind {
		case domain.EntryInbound:
			t.InboundBags += e.BagCount
			t.InboundKg += e.WeightKg
		case domain.EntryOutbound:
			t.OutboundBags += e.BagCount
			t.OutboundKg += e.WeightKg
		default:
			t.OpeningBags += e.BagCount
			t.OpeningKg += e.WeightKg
			t.InboundBags += e.InboundBags
			t.InboundKg += e.InboundKg
			t.OutboundBags += e.OutboundBags
			t.OutboundKg += e.OutboundKg
			t.ClosingBags += e.ClosingBags
			t.ClosingKg += e.ClosingKg
		}
	}
	return t
}
