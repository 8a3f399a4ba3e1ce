package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// BalancePoint is the on-hand weight of one material at the end of a day.
type BalancePoint struct {
	Date      time.Time
	BalanceKg float64
}

// BalanceSeries turns the entries of one material into a date-ordered
// balance series. Undated entries are ignored.
//
// On a date with count entries the balance is the sum of their closing
// weights, and movements of that date are taken as already counted. On
// other dates movements adjust the running balance.
func BalanceSeries(entries []domain.LedgerEntry) []BalancePoint {
	dated := make([]domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.ObservedDate != nil {
			dated = append(dated, e)
		}
	}

	// input order is not trusted, entries may come from parallel extraction
	sort.SliceStable(dated, func(i, j int) bool {
		di, dj := dayOf(*dated[i].ObservedDate), dayOf(*dated[j].ObservedDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return dated[i].Lot < dated[j].Lot
	})

	var (
		series  []BalancePoint
		running float64
	)
	for i := 0; i < len(dated); {
		day := dayOf(*dated[i].ObservedDate)
		j := i
		for j < len(dated) && dayOf(*dated[j].ObservedDate).Equal(day) {
			j++
		}

		counted := false
		var countSum, moved float64
		for _, e := range dated[i:j] {
			if e.Kind == domain.EntryCount {
				counted = true
				countSum += e.ClosingKg
				continue
			}
			moved += e.SignedWeight()
		}

		if counted {
			running = countSum
		} else {
			running += moved
		}
		series = append(series, BalancePoint{Date: day, BalanceKg: running})
		i = j
	}

	return series
}

// UsageSamples returns the positive drops between consecutive balance
// points. A rise is a receipt and yields no sample.
func UsageSamples(series []BalancePoint) []float64 {
	var samples []float64
	for i := 1; i < len(series); i++ {
		if used := series[i-1].BalanceKg - series[i].BalanceKg; used > 0 {
			samples = append(samples, used)
		}
	}
	return samples
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
