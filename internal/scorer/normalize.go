package scorer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text into the canonical form every comparison runs
// on: accents stripped, lowercased, non-breaking spaces flattened.
func Normalize(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, str)
	result = strings.ReplaceAll(result, " ", " ")
	return strings.ToLower(result)
}
