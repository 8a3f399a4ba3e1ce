package export

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// formatNumber formats v with dot as thousands separator and comma as
// decimal separator. A zero fraction after rounding is omitted.
// Example: 1234.5 (2 decimals) => "1.234,50"; 1000.0 => "1.000".
func formatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	d := decimal.NewFromFloat(v).Round(int32(decimals))
	prefix := ""
	if d.IsNegative() {
		prefix = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(int32(decimals))
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	s := groupThousands(intPart)
	if fracPart == "" || strings.Trim(fracPart, "0") == "" {
		return prefix + s
	}
	return prefix + s + "," + fracPart
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func formatOptional(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return formatNumber(*v, decimals)
}

func formatAge(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
