package checkstock

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/checkstock/internal/grid"
)

// ParseStatus separates "no value" from "value we could not read".
type ParseStatus int

const (
	Empty ParseStatus = iota
	Parsed
	Malformed
)

// NumberResult is the outcome of reading a numeric cell.
type NumberResult struct {
	Status ParseStatus
	Value  float64
	Raw    string
}

// OrZero returns the value, or 0 for empty and malformed cells.
func (r NumberResult) OrZero() float64 {
	if r.Status != Parsed {
		return 0
	}
	return r.Value
}

// DateResult is the outcome of reading a date cell. Value is at midnight UTC.
type DateResult struct {
	Status ParseStatus
	Value  time.Time
	Raw    string
}

// Excel serial range accepted as a date: 1954-10-04 .. 2119-01-08.
const (
	minDateSerial = 20000
	maxDateSerial = 80000
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	time.RFC3339,
	"02/01/06",
	"2/1/06",
}

// ParseNumber reads a quantity cell. Text cells may use either "," or "." as
// thousands separator, wrap negatives in parentheses and carry a trailing
// unit such as "kg".
func ParseNumber(c grid.Cell) NumberResult {
	switch c.Kind {
	case grid.KindEmpty:
		return NumberResult{Status: Empty}
	case grid.KindNumber:
		return NumberResult{Status: Parsed, Value: c.Number, Raw: c.String()}
	case grid.KindDate:
		return NumberResult{Status: Malformed, Raw: c.String()}
	}

	raw := c.Text
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return NumberResult{Status: Empty, Raw: raw}
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '_' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimRightFunc(s, unicode.IsLetter)
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return NumberResult{Status: Malformed, Raw: raw}
	}
	if neg {
		d = d.Neg()
	}

	v, _ := d.Float64()
	return NumberResult{Status: Parsed, Value: v, Raw: raw}
}

// normalizeSeparators rewrites s so that "." is the only decimal separator
// and no grouping separators remain.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || isThousandsGroup(s, lastComma) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// isThousandsGroup is true for "1,234" but not "1,5" or "0,250".
func isThousandsGroup(s string, sep int) bool {
	intPart := strings.TrimLeft(s[:sep], "+-")
	frac := s[sep+1:]
	if len(frac) != 3 || intPart == "" || len(intPart) > 3 {
		return false
	}
	return strings.TrimLeft(intPart, "0") != ""
}

// ParseDate reads an observed-date cell: native dates, Excel serial numbers
// and the day-first text layouts used in the warehouse sheets.
func ParseDate(c grid.Cell) DateResult {
	switch c.Kind {
	case grid.KindEmpty:
		return DateResult{Status: Empty}
	case grid.KindDate:
		return DateResult{Status: Parsed, Value: midnight(c.Time), Raw: c.String()}
	case grid.KindNumber:
		return dateFromSerial(c.Number, c.String())
	}

	raw := c.Text
	s := strings.TrimSpace(raw)
	if s == "" {
		return DateResult{Status: Empty, Raw: raw}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateResult{Status: Parsed, Value: midnight(t), Raw: raw}
		}
	}

	if d, err := decimal.NewFromString(s); err == nil {
		v, _ := d.Float64()
		return dateFromSerial(v, raw)
	}

	return DateResult{Status: Malformed, Raw: raw}
}

func dateFromSerial(v float64, raw string) DateResult {
	if v < minDateSerial || v > maxDateSerial {
		return DateResult{Status: Malformed, Raw: raw}
	}
	t, err := excelize.ExcelDateToTime(v, false)
	if err != nil {
		return DateResult{Status: Malformed, Raw: raw}
	}
	return DateResult{Status: Parsed, Value: midnight(t), Raw: raw}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
