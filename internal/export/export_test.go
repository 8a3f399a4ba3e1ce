package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/checkstock/internal/domain"
)

var today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleEntries() []domain.LedgerEntry {
	d1 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	avg := 25.0
	return []domain.LedgerEntry{
		{Kind: domain.EntryCount, Material: "BOT MI", Lot: "A1", Location: "T3", BagCount: 20, WeightKg: 500, ClosingKg: 500, AvgKgPerBag: &avg, ObservedDate: &d1, Supplier: "Minh Phát"},
		{Kind: domain.EntryCount, Material: "BOT MI", Lot: "A1", Location: "T2", BagCount: 24, WeightKg: 600, ClosingKg: 600, ObservedDate: &d2},
		{Kind: domain.EntryOutbound, Material: "DUONG", Lot: "B1", BagCount: 2, WeightKg: 100, OutboundKg: 100},
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1234.5, 2, "1.234,50"},
		{1000, 2, "1.000"},
		{999, 0, "999"},
		{1234567.891, 2, "1.234.567,89"},
		{-1500.25, 1, "-1.500,3"},
		{-0.001, 2, "0"},
		{0.5, -1, "1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatNumber(tc.v, tc.decimals), "%v/%d", tc.v, tc.decimals)
	}
}

func TestRecordsComputesAge(t *testing.T) {
	recs := Records(sampleEntries(), today)

	require.Len(t, recs, 3)
	require.NotNil(t, recs[0].AgeDays)
	assert.Equal(t, 10, *recs[0].AgeDays)
	assert.Equal(t, 14, *recs[1].AgeDays)
	assert.Nil(t, recs[2].AgeDays)
	assert.Equal(t, domain.EntryOutbound, recs[2].Kind)
}

func TestXLSXRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := XLSXRenderer{}
	require.NoError(t, r.Render(&buf, Records(sampleEntries(), today)))
	assert.Equal(t, ".xlsx", r.Extension())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "05/03/2024", rows[1][0])
	assert.Equal(t, "BOT MI", rows[1][1])
	assert.Equal(t, "A1", rows[1][2])
	assert.Equal(t, "outbound", rows[3][4])
	assert.Equal(t, "TONG", rows[4][0])

	total, err := f.GetCellValue(reportSheet, "G5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1200", total)
}

func TestPDFRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := PDFRenderer{Now: func() time.Time { return today }}

	require.NoError(t, r.Render(&buf, Records(sampleEntries(), today)))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Equal(t, "application/pdf", r.ContentType())
}

func TestLotCard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LotCard(&buf, " a1 ", Records(sampleEntries(), today)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	err := LotCard(&bytes.Buffer{}, "ZZ", Records(sampleEntries(), today))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
