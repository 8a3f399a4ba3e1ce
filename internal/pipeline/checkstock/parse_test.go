package checkstock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/checkstock/internal/grid"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in     string
		status ParseStatus
		want   float64
	}{
		{"500", Parsed, 500},
		{"1,234.5", Parsed, 1234.5},
		{"1.234,5", Parsed, 1234.5},
		{"1,234", Parsed, 1234},
		{"12,5", Parsed, 12.5},
		{"0,250", Parsed, 0.25},
		{"1.234.567", Parsed, 1234567},
		{"1,234,567", Parsed, 1234567},
		{"1 234", Parsed, 1234},
		{"(50)", Parsed, -50},
		{"-12.75", Parsed, -12.75},
		{"25 kg", Parsed, 25},
		{"12.5", Parsed, 12.5},
		{"", Empty, 0},
		{"  ", Empty, 0},
		{"-", Empty, 0},
		{"abc", Malformed, 0},
		{"N/A", Malformed, 0},
		{"1..2,3,4", Malformed, 0},
	}
	for _, tc := range cases {
		got := ParseNumber(grid.Cell{Kind: grid.KindText, Text: tc.in})
		assert.Equal(t, tc.status, got.Status, tc.in)
		assert.InDelta(t, tc.want, got.OrZero(), 1e-9, tc.in)
	}
}

func TestParseNumberNativeCells(t *testing.T) {
	assert.Equal(t, NumberResult{Status: Parsed, Value: 42.5, Raw: "42.5"}, ParseNumber(grid.NumberCell(42.5)))
	assert.Equal(t, Empty, ParseNumber(grid.Cell{}).Status)
	assert.Equal(t, Malformed, ParseNumber(grid.DateCell(time.Now())).Status)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		cell grid.Cell
	}{
		{"iso", grid.TextCell("2024-03-05")},
		{"day first", grid.TextCell("05/03/2024")},
		{"day first short", grid.TextCell("5/3/2024")},
		{"dashes", grid.TextCell("05-03-2024")},
		{"dots", grid.TextCell("05.03.2024")},
		{"year first", grid.TextCell("2024/03/05")},
		{"year first short", grid.TextCell("2024/3/5")},
		{"month name", grid.TextCell("05-Mar-2024")},
		{"month name short day", grid.TextCell("5-mar-2024")},
		{"with time", grid.TextCell("2024-03-05 14:20:00")},
		{"excel serial", grid.NumberCell(45356)},
		{"excel serial as text", grid.TextCell("45356")},
		{"native date", grid.DateCell(time.Date(2024, 3, 5, 16, 0, 0, 0, time.UTC))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.cell)
			assert.Equal(t, Parsed, got.Status)
			assert.Equal(t, want, got.Value)
		})
	}
}

func TestParseDateAmbiguousIsDayFirst(t *testing.T) {
	got := ParseDate(grid.TextCell("03/04/2024"))
	assert.Equal(t, Parsed, got.Status)
	assert.Equal(t, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), got.Value)
}

func TestParseDateFailures(t *testing.T) {
	assert.Equal(t, Empty, ParseDate(grid.Cell{}).Status)

	bad := ParseDate(grid.TextCell("hôm qua"))
	assert.Equal(t, Malformed, bad.Status)
	assert.Equal(t, "hôm qua", bad.Raw)

	assert.Equal(t, Malformed, ParseDate(grid.NumberCell(12)).Status)
	assert.Equal(t, Malformed, ParseDate(grid.TextCell("31/02/2024")).Status)
}
