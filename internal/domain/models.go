package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind tells how a ledger entry came to exist.
type EntryKind string

const (
	// EntryCount is a balance observed in an ingested check-stock sheet.
	EntryCount EntryKind = "count"
	// EntryInbound and EntryOutbound are manual movements.
	EntryInbound  EntryKind = "inbound"
	EntryOutbound EntryKind = "outbound"
)

// LedgerEntry is one fact about one material lot at one point in time.
// Kind carries the direction and outbound quantities are magnitudes.
// Entries are never updated once appended.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	BatchID      uuid.UUID  `json:"batch_id" db:"batch_id"`
	Kind         EntryKind  `json:"kind" db:"kind"`
	Material     string     `json:"material" db:"material"`
	MaterialRaw  string     `json:"material_raw" db:"material_raw"`
	Lot          string     `json:"lot" db:"lot"`
	Location     string     `json:"location" db:"location"`
	BagCount     float64    `json:"bag_count" db:"bag_count"`
	WeightKg     float64    `json:"weight_kg" db:"weight_kg"`
	InboundBags  float64    `json:"inbound_bags" db:"inbound_bags"`
	InboundKg    float64    `json:"inbound_kg" db:"inbound_kg"`
	OutboundBags float64    `json:"outbound_bags" db:"outbound_bags"`
	OutboundKg   float64    `json:"outbound_kg" db:"outbound_kg"`
	ClosingBags  float64    `json:"closing_bags" db:"closing_bags"`
	ClosingKg    float64    `json:"closing_kg" db:"closing_kg"`
	AvgKgPerBag  *float64   `json:"avg_kg_per_bag" db:"avg_kg_per_bag"`
	Supplier     string     `json:"supplier" db:"supplier"`
	ObservedDate *time.Time `json:"observed_date" db:"observed_date"`
	RawDate      string     `json:"raw_date,omitempty" db:"raw_date"`
	SourceSheet  string     `json:"source_sheet" db:"source_sheet"`
	SourceRow    int        `json:"source_row" db:"source_row"`
	SourceColumn int        `json:"source_column" db:"source_column"`
	AgeDays      *int       `json:"age_days" db:"age_days"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// SignedWeight is the weight contribution of the entry to an on-hand total.
func (e LedgerEntry) SignedWeight() float64 {
	if e.Kind == EntryOutbound {
		return -e.WeightKg
	}
	return e.WeightKg
}

// SignedBags is the bag contribution of the entry to an on-hand total.
func (e LedgerEntry) SignedBags() float64 {
	if e.Kind == EntryOutbound {
		return -e.BagCount
	}
	return e.BagCount
}

// InventorySnapshot aggregates the ledger for one material.
type InventorySnapshot struct {
	Material      string  `json:"material"`
	TotalWeightKg float64 `json:"total_weight_kg"`
	TotalBags     float64 `json:"total_bags"`
	LotCount      int     `json:"lot_count"`
	LocationCount int     `json:"location_count"`
}

// LedgerTotals holds column sums over a set of entries.
type LedgerTotals struct {
	Entries      int     `json:"entries"`
	OpeningBags  float64 `json:"opening_bags"`
	OpeningKg    float64 `json:"opening_kg"`
	InboundBags  float64 `json:"inbound_bags"`
	InboundKg    float64 `json:"inbound_kg"`
	OutboundBags float64 `json:"outbound_bags"`
	OutboundKg   float64 `json:"outbound_kg"`
	ClosingBags  float64 `json:"closing_bags"`
	ClosingKg    float64 `json:"closing_kg"`
}

// ReorderRecommendation is derived on request and never stored.
type ReorderRecommendation struct {
	Material      string        `json:"material"`
	OnHandKg      float64       `json:"on_hand_kg"`
	DailyUsageKg  float64       `json:"daily_usage_kg"`
	RemainingDays float64       `json:"remaining_days"`
	ReorderQtyKg  float64       `json:"reorder_qty_kg"`
	Status        ReorderStatus `json:"status"`
	StatusLabel   string        `json:"status_label"`
	UsageSamples  int           `json:"usage_samples"`
	LastObserved  *time.Time    `json:"last_observed,omitempty"`
}

// LedgerFilter narrows a ledger listing. Zero values mean "no restriction".
type LedgerFilter struct {
	Materials   []string    `json:"materials,omitempty"`
	Lot         string      `json:"lot,omitempty"`
	SourceSheet string      `json:"source_sheet,omitempty"`
	From        *time.Time  `json:"from,omitempty"`
	To          *time.Time  `json:"to,omitempty"`
	Kinds       []EntryKind `json:"kinds,omitempty"`
}

// Transaction is a manual inbound or outbound movement.
type Transaction struct {
	Kind     EntryKind `json:"kind"`
	Material string    `json:"material"`
	Lot      string    `json:"lot"`
	Location string    `json:"location"`
	Bags     float64   `json:"bags"`
	WeightKg float64   `json:"weight_kg"`
	Supplier string    `json:"supplier"`
	Date     time.Time `json:"date"`
}

// SheetReport describes the outcome of one sheet of an ingested workbook.
type SheetReport struct {
	Sheet          string      `json:"sheet"`
	Status         SheetStatus `json:"status"`
	HeaderRow      int         `json:"header_row"`
	Segments       int         `json:"segments"`
	Degraded       bool        `json:"degraded"`
	Entries        int         `json:"entries"`
	MalformedCells int         `json:"malformed_cells"`
	Error          string      `json:"error,omitempty"`
}

// IngestReport summarises one workbook ingestion.
type IngestReport struct {
	BatchID    uuid.UUID     `json:"batch_id"`
	Workbook   string        `json:"workbook"`
	Sheets     []SheetReport `json:"sheets"`
	Entries    int           `json:"entries"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Error      string        `json:"error,omitempty"`
}

// Rejected reports whether no sheet of the workbook could be read.
func (r IngestReport) Rejected() bool {
	if len(r.Sheets) == 0 {
		return true
	}
	for _, s := range r.Sheets {
		if s.Status != SheetRejected {
			return false
		}
	}
	return true
}
