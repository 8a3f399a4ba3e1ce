package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/checkstock/internal/domain"
)

// AgeDays is the number of whole days between the observed date and today,
// both taken at calendar midnight. A nil date yields nil, never zero.
// Dates in the future give a negative age.
func AgeDays(observed *time.Time, today time.Time) *int {
	if observed == nil {
		return nil
	}
	from := dayStart(*observed)
	to := dayStart(today)
	days := int(math.Floor(to.Sub(from).Hours() / 24))
	return &days
}

// WithAge returns copies of entries with AgeDays recomputed for today.
func WithAge(entries []domain.LedgerEntry, today time.Time) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, len(entries))
	for i, e := range entries {
		e.AgeDays = AgeDays(e.ObservedDate, today)
		out[i] = e
	}
	return out
}

// dayStart keeps the calendar date of t and drops the clock and zone, so
// that two dates one day apart are always exactly 24 hours apart.
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
