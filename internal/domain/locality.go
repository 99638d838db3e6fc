package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// turkishFold maps Turkish-specific letters to their closest ASCII Latin
// equivalents so that "İzmir", "IZMIR" and "izmir" all compare equal.
var turkishFold = strings.NewReplacer(
	"ı", "i", "İ", "i",
	"ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u",
	"ş", "s", "Ş", "s",
	"ö", "o", "Ö", "o",
	"ç", "c", "Ç", "c",
)

// stripMarks removes combining marks after NFD decomposition, folding any
// remaining accented characters to their base letter.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldText normalizes free text for locality comparison: Turkish fold,
// lowercase, diacritic strip, whitespace collapse.
func FoldText(s string) string {
	s = turkishFold.Replace(strings.TrimSpace(s))
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// MatchesLocality reports whether the folded needle occurs in any of the
// event's locality-bearing fields. An empty needle matches everything.
// Both sides are folded with FoldText; the event is never mutated.
func MatchesLocality(e Event, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	for _, field := range []string{e.City, e.Province, e.District, e.Location, e.Region} {
		if field != "" && strings.Contains(FoldText(field), foldedNeedle) {
			return true
		}
	}
	return false
}
