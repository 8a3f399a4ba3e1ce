package analytics

import (
	"strings"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// Filter returns the entries matching f, preserving order. A date range
// excludes entries without an observed date.
func Filter(entries []domain.LedgerEntry, f domain.LedgerFilter) []domain.LedgerEntry {
	materials := make(map[string]struct{}, len(f.Materials))
	for _, m := range f.Materials {
		if k := domain.NormalizeMaterial(m); k != "" {
			materials[k] = struct{}{}
		}
	}
	kinds := make(map[domain.EntryKind]struct{}, len(f.Kinds))
	for _, k := range f.Kinds {
		kinds[k] = struct{}{}
	}
	lot := domain.NormalizeCode(f.Lot)

	var from, to int64
	if f.From != nil {
		from = dayStart(*f.From).Unix()
	}
	if f.To != nil {
		to = dayStart(*f.To).Unix()
	}

	out := make([]domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if len(materials) > 0 {
			if _, ok := materials[domain.NormalizeMaterial(e.Material)]; !ok {
				continue
			}
		}
		if len(kinds) > 0 {
			if _, ok := kinds[e.Kind]; !ok {
				continue
			}
		}
		if lot != "" && e.Lot != lot {
			continue
		}
		if f.SourceSheet != "" && !strings.EqualFold(e.SourceSheet, f.SourceSheet) {
			continue
		}
		if f.From != nil || f.To != nil {
			if e.ObservedDate == nil {
				continue
			}
			day := dayStart(*e.ObservedDate).Unix()
			if f.From != nil && day < from {
				continue
			}
			if f.To != nil && day > to {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Materials lists the distinct normalized materials in entries, in order of
// first appearance.
func Materials(entries []domain.LedgerEntry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.Material]; ok || e.Material == "" {
			continue
		}
		seen[e.Material] = struct{}{}
		out = append(out, e.Material)
	}
	return out
}

// Lots lists the distinct lot codes in entries, in order of first appearance.
func Lots(entries []domain.LedgerEntry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.Lot]; ok || e.Lot == "" {
			continue
		}
		seen[e.Lot] = struct{}{}
		out = append(out, e.Lot)
	}
	return out
}
