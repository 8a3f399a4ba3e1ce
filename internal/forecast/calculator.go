// Package forecast estimates consumption from ledger balances and turns it
// into reorder recommendations.
package forecast

import (
	"math"
	"sort"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// MinDailyUsage stands in for the usage rate when a material has no
// consumption history, so the runway stays finite.
const MinDailyUsage = 0.01

// watchFactor is the multiple of the lead time below which stock is watched.
const watchFactor = 1.5

// Calculator derives reorder recommendations from balance series.
type Calculator struct {
	minUsage float64
}

// NewCalculator creates a calculator. A non-positive minUsage falls back to
// MinDailyUsage.
func NewCalculator(minUsage float64) *Calculator {
	if minUsage <= 0 {
		minUsage = MinDailyUsage
	}
	return &Calculator{minUsage: minUsage}
}

// DailyUsage is the mean of the samples, or the minimum rate without any.
func (c *Calculator) DailyUsage(samples []float64) float64 {
	if len(samples) == 0 {
		return c.minUsage
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// Calculate computes the recommendation for one material.
func (c *Calculator) Calculate(material string, series []BalancePoint, req Request) domain.ReorderRecommendation {
	rec := domain.ReorderRecommendation{Material: material}

	if n := len(series); n > 0 {
		// 1. On hand is the latest balance, never negative
		rec.OnHandKg = math.Max(0, series[n-1].BalanceKg)
		last := series[n-1].Date
		rec.LastObserved = &last
	}

	// 2. Daily usage from consumption samples
	samples := UsageSamples(series)
	rec.UsageSamples = len(samples)
	rec.DailyUsageKg = c.DailyUsage(samples)

	// 3. Remaining days of stock
	rec.RemainingDays = rec.OnHandKg / rec.DailyUsageKg

	// 4. Quantity to cover the horizon
	rec.ReorderQtyKg = math.Max(0, rec.DailyUsageKg*float64(req.HorizonDays)-rec.OnHandKg)

	// 5. Status against lead time
	rec.Status = Classify(rec.RemainingDays, req.LeadTimeDays)
	rec.StatusLabel = domain.ReorderStatusLabel(rec.Status)

	return rec
}

// Classify places remaining days into exactly one band relative to the
// lead time: [0, L) reorder now, [L, 1.5L) watch, [1.5L, inf) safe.
func Classify(remainingDays float64, leadTimeDays int) domain.ReorderStatus {
	lead := float64(leadTimeDays)
	switch {
	case remainingDays < lead:
		return domain.StatusReorderNow
	case remainingDays < watchFactor*lead:
		return domain.StatusWatch
	default:
		return domain.StatusSafe
	}
}

// Forecast validates req and returns one recommendation per material of
// entries, most urgent first.
func (c *Calculator) Forecast(entries []domain.LedgerEntry, req Request) ([]domain.ReorderRecommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wanted := req.materialSet()
	byMaterial := make(map[string][]domain.LedgerEntry)
	for _, e := range entries {
		m := domain.NormalizeMaterial(e.Material)
		if m == "" || (wanted != nil && !wanted[m]) {
			continue
		}
		byMaterial[m] = append(byMaterial[m], e)
	}

	recs := make([]domain.ReorderRecommendation, 0, len(byMaterial))
	for m, group := range byMaterial {
		recs = append(recs, c.Calculate(m, BalanceSeries(group), req))
	}

	sort.Slice(recs, func(i, j int) bool {
		ui, uj := recs[i].Status.Urgency(), recs[j].Status.Urgency()
		if ui != uj {
			return ui < uj
		}
		return recs[i].Material < recs[j].Material
	})

	return recs, nil
}

// Forecast runs a calculator with the default minimum usage.
func Forecast(entries []domain.LedgerEntry, req Request) ([]domain.ReorderRecommendation, error) {
	return NewCalculator(MinDailyUsage).Forecast(entries, req)
}
