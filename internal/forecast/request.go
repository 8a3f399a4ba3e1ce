package forecast

import (
	"github.com/andresuchdata/checkstock/internal/domain"
)

// Request holds the caller parameters of a forecast run.
type Request struct {
	// Materials restricts the output; empty means every material in the ledger.
	Materials    []string `json:"materials,omitempty"`
	LeadTimeDays int      `json:"lead_time_days"`
	HorizonDays  int      `json:"horizon_days"`
}

// Validate rejects non-positive lead time or horizon before any computation.
func (r Request) Validate() error {
	if r.LeadTimeDays <= 0 {
		return &domain.ForecastParamError{Param: "lead_time_days", Value: r.LeadTimeDays}
	}
	if r.HorizonDays <= 0 {
		return &domain.ForecastParamError{Param: "horizon_days", Value: r.HorizonDays}
	}
	return nil
}

func (r Request) materialSet() map[string]bool {
	if len(r.Materials) == 0 {
		return nil
	}
	set := make(map[string]bool, len(r.Materials))
	for _, m := range r.Materials {
		if n := domain.NormalizeMaterial(m); n != "" {
			set[n] = true
		}
	}
	return set
}
