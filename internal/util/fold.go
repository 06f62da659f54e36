package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks matches the Combining Diacritical Marks block left behind by
// canonical decomposition ("Podíl" → "Podi" + U+0301 + "l").
var combiningMarks = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
})

// StripDiacritics removes accents from s.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FoldKey reduces a column header to its comparable form: no diacritics, no
// whitespace, lower case. "Vlastník " and "vlastnik" fold to the same key.
func FoldKey(s string) string {
	s = StripDiacritics(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// FoldText is FoldKey for free text: whitespace is kept, collapsed to single
// spaces.
func FoldText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(StripDiacritics(s)), " "))
}
