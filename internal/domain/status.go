package domain

import "strings"

// ReorderStatus classifies remaining stock against the supplier lead time.
type ReorderStatus string

const (
	StatusReorderNow ReorderStatus = "reorder_now"
	StatusWatch      ReorderStatus = "watch"
	StatusSafe       ReorderStatus = "safe"
)

var reorderStatusLabels = map[ReorderStatus]string{
	StatusReorderNow: "Reorder now",
	StatusWatch:      "Watch",
	StatusSafe:       "Safe",
}

var reorderStatusCodes = map[string]ReorderStatus{
	"reorder_now": StatusReorderNow,
	"reorder now": StatusReorderNow,
	"watch":       StatusWatch,
	"safe":        StatusSafe,
}

// ReorderStatusLabel returns a human-readable label for a reorder status.
func ReorderStatusLabel(status ReorderStatus) string {
	if label, ok := reorderStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParseReorderStatus returns the status for a given label (case-insensitive).
func ParseReorderStatus(label string) (ReorderStatus, bool) {
	status, ok := reorderStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// Urgency orders statuses from most to least pressing.
func (s ReorderStatus) Urgency() int {
	switch s {
	case StatusReorderNow:
		return 0
	case StatusWatch:
		return 1
	case StatusSafe:
		return 2
	}
	return 3
}

// SheetStatus is the per-sheet outcome of an ingestion.
type SheetStatus string

const (
	SheetOK        SheetStatus = "ok"
	SheetNoRecords SheetStatus = "no_records"
	SheetRejected  SheetStatus = "rejected"
)

// ParseEntryKind accepts the kind names plus the original upload labels.
func ParseEntryKind(s string) (EntryKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return EntryCount, true
	case "inbound", "in", "nhap":
		return EntryInbound, true
	case "outbound", "out", "xuat":
		return EntryOutbound, true
	}
	return "", false
}
