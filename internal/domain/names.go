package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeMaterial folds a material name to its canonical key: diacritics
// removed, whitespace collapsed, upper-cased. "Bột Mì" becomes "BOT MI".
func NormalizeMaterial(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(StripDiacritics(name)), " "))
}

// NormalizeCode trims and upper-cases lot and location codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(StripDiacritics(code)), " "))
}

// StripDiacritics removes combining marks. Đ and đ have no decomposition and
// are mapped to D by hand.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("Đ", "D", "đ", "d").Replace(out)
}
